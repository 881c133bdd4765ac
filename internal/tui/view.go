package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	pathStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Bold(true)
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	folderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	panelBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func (model Model) View() string {
	state := model.browser.Snapshot()

	header := headerStyle.Render(model.title) + "  " + pathStyle.Render(state.Path.String())
	parts := []string{header, model.renderList()}

	if model.creating {
		parts = append(parts, panelBorder.Render(model.input.View()))
	}

	status := model.status
	statusStyle := mutedStyle
	if state.Error != "" && !model.busy && !strings.HasPrefix(status, "Error") {
		status = "Error: " + state.Error
	}
	if strings.HasPrefix(status, "Error") || model.confirming {
		statusStyle = warnStyle
	}
	parts = append(parts, statusStyle.Render(status))

	if model.showHelp {
		parts = append(parts, model.help.FullHelpView(model.keys.FullHelp()))
	} else {
		parts = append(parts, model.help.ShortHelpView(model.keys.ShortHelp()))
	}
	return strings.Join(parts, "\n")
}

func (model Model) renderList() string {
	items := model.items()
	if len(items) == 0 {
		if model.busy {
			return mutedStyle.Render("  Loading...")
		}
		return mutedStyle.Render("  This folder is empty.")
	}

	height := model.height - 6
	if height < 3 {
		height = 3
	}
	top := 0
	if model.cursor >= height {
		top = model.cursor - height + 1
	}
	end := top + height
	if end > len(items) {
		end = len(items)
	}

	lines := make([]string, 0, end-top)
	for i := top; i < end; i++ {
		lines = append(lines, model.renderRow(items[i], i == model.cursor))
	}
	return strings.Join(lines, "\n")
}

func (model Model) renderRow(item spe.DriveItem, selected bool) string {
	name := item.Name
	detail := formatSize(item.Size)
	if item.IsFolder() {
		name += "/"
		detail = fmt.Sprintf("%d items", item.ChildCount)
	}

	nameWidth := model.width - 40
	if nameWidth < 20 {
		nameWidth = 20
	}
	if len([]rune(name)) > nameWidth {
		name = string([]rune(name)[:nameWidth-1]) + "…"
	}

	row := fmt.Sprintf("%-*s %10s  %s", nameWidth, name, detail, item.CreatedByName)
	switch {
	case selected:
		return cursorStyle.Render("> " + row)
	case item.IsFolder():
		return "  " + folderStyle.Render(row)
	default:
		return "  " + row
	}
}

func formatSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
