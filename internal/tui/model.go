// Package tui is an interactive terminal browser for one container.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tonimelisma/spe-client/internal/browser"
	"github.com/tonimelisma/spe-client/internal/ui"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

// Model is the Bubble Tea model. All remote state lives in the Browser;
// the model only keeps the cursor and the prompts.
type Model struct {
	ctx     context.Context
	browser *browser.Browser
	keys    KeyMap
	help    help.Model
	input   textinput.Model

	title      string
	cursor     int
	status     string
	busy       bool
	showHelp   bool
	confirming bool
	creating   bool
	pending    spe.DriveItem
	width      int
	height     int
}

// NewModel creates a model for b. title is shown in the header.
func NewModel(ctx context.Context, b *browser.Browser, title string) Model {
	input := textinput.New()
	input.Placeholder = "Folder name"
	input.CharLimit = 255

	if title == "" {
		title = b.ContainerID()
	}
	return Model{
		ctx:     ctx,
		browser: b,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		input:   input,
		title:   title,
		status:  "Loading...",
		busy:    true,
		width:   100,
		height:  30,
	}
}

func (model Model) Init() tea.Cmd {
	return model.fetchCmd()
}

func (model Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		return model.handleKey(typed)
	case tea.WindowSizeMsg:
		model.width = typed.Width
		model.height = typed.Height
		model.help.Width = typed.Width
		return model, nil
	case fetchDoneMsg:
		model.busy = false
		model.clampCursor()
		if typed.err != nil {
			model.status = fmt.Sprintf("Error: %v", typed.err)
			return model, nil
		}
		model.status = fmt.Sprintf("%d item(s)", len(model.items()))
		return model, nil
	case deleteDoneMsg:
		model.busy = false
		model.clampCursor()
		if typed.err != nil {
			model.status = fmt.Sprintf("Error: %v", typed.err)
			return model, nil
		}
		model.status = fmt.Sprintf("Deleted %s", typed.name)
		return model, nil
	case folderCreatedMsg:
		model.busy = false
		if typed.err != nil {
			model.status = fmt.Sprintf("Error: %v", typed.err)
			return model, nil
		}
		model.status = fmt.Sprintf("Created folder %s", typed.item.Name)
		return model, nil
	}
	return model, nil
}

func (model Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if model.creating {
		return model.handleFolderInput(msg)
	}

	switch {
	case key.Matches(msg, model.keys.Quit):
		return model, tea.Quit
	case key.Matches(msg, model.keys.Help):
		model.showHelp = !model.showHelp
		return model, nil
	case model.confirming && key.Matches(msg, model.keys.Confirm):
		model.confirming = false
		model.busy = true
		model.status = fmt.Sprintf("Deleting %s...", model.pending.Name)
		return model, model.deleteCmd(model.pending)
	case model.confirming && key.Matches(msg, model.keys.Cancel):
		model.confirming = false
		model.status = "Delete cancelled"
		return model, nil
	case model.confirming:
		return model, nil
	case model.busy:
		return model, nil
	case key.Matches(msg, model.keys.Up):
		if model.cursor > 0 {
			model.cursor--
		}
		return model, nil
	case key.Matches(msg, model.keys.Down):
		if model.cursor < len(model.items())-1 {
			model.cursor++
		}
		return model, nil
	case key.Matches(msg, model.keys.Open):
		return model.open()
	case key.Matches(msg, model.keys.Back):
		if _, ok := model.browser.Snapshot().Path.Parent(); !ok {
			return model, nil
		}
		model.busy = true
		model.cursor = 0
		model.status = "Loading..."
		return model, model.navigateCmd(func(ctx context.Context) error {
			return model.browser.NavigateUp(ctx)
		})
	case key.Matches(msg, model.keys.Refresh):
		model.busy = true
		model.status = "Refreshing..."
		return model, model.fetchCmd()
	case key.Matches(msg, model.keys.Delete):
		item, ok := model.selected()
		if !ok {
			return model, nil
		}
		model.confirming = true
		model.pending = item
		model.status = fmt.Sprintf("Delete %s? (y/n)", item.Name)
		return model, nil
	case key.Matches(msg, model.keys.NewFolder):
		model.creating = true
		model.input.SetValue("")
		model.status = "New folder"
		return model, model.input.Focus()
	}
	return model, nil
}

func (model Model) handleFolderInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		model.creating = false
		model.input.Blur()
		model.status = "Cancelled"
		return model, nil
	case tea.KeyEnter:
		name := model.input.Value()
		model.creating = false
		model.input.Blur()
		model.busy = true
		model.status = fmt.Sprintf("Creating %s...", name)
		return model, model.createFolderCmd(name)
	}

	var cmd tea.Cmd
	model.input, cmd = model.input.Update(msg)
	return model, cmd
}

func (model Model) open() (tea.Model, tea.Cmd) {
	item, ok := model.selected()
	if !ok {
		return model, nil
	}
	if !item.IsFolder() {
		if item.WebURL == "" {
			model.status = item.Name
		} else {
			model.status = item.WebURL
		}
		return model, nil
	}
	model.busy = true
	model.cursor = 0
	model.status = "Loading..."
	return model, model.navigateCmd(func(ctx context.Context) error {
		return model.browser.NavigateIntoFolder(ctx, item.ID, item.Name)
	})
}

// items returns the current listing in display order.
func (model Model) items() []spe.DriveItem {
	return ui.SortItems(model.browser.Snapshot().Items)
}

func (model Model) selected() (spe.DriveItem, bool) {
	items := model.items()
	if model.cursor < 0 || model.cursor >= len(items) {
		return spe.DriveItem{}, false
	}
	return items[model.cursor], true
}

func (model *Model) clampCursor() {
	n := len(model.items())
	if model.cursor >= n {
		model.cursor = n - 1
	}
	if model.cursor < 0 {
		model.cursor = 0
	}
}

func (model Model) fetchCmd() tea.Cmd {
	b, ctx := model.browser, model.ctx
	return func() tea.Msg {
		err := b.Fetch(ctx)
		if errors.Is(err, browser.ErrNotReady) {
			err = fmt.Errorf("%w: run 'spe-client auth login'", err)
		}
		return fetchDoneMsg{err: err}
	}
}

func (model Model) navigateCmd(fn func(ctx context.Context) error) tea.Cmd {
	ctx := model.ctx
	return func() tea.Msg {
		return fetchDoneMsg{err: fn(ctx)}
	}
}

func (model Model) deleteCmd(item spe.DriveItem) tea.Cmd {
	b, ctx := model.browser, model.ctx
	return func() tea.Msg {
		return deleteDoneMsg{name: item.Name, err: b.DeleteItem(ctx, item)}
	}
}

func (model Model) createFolderCmd(name string) tea.Cmd {
	b, ctx := model.browser, model.ctx
	return func() tea.Msg {
		item, err := b.CreateFolder(ctx, name)
		return folderCreatedMsg{item: item, err: err}
	}
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, b *browser.Browser, title string) error {
	p := tea.NewProgram(NewModel(ctx, b, title), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
