// Package browser keeps the state of a file listing inside one container:
// the current folder, the breadcrumb trail back to the root and the items
// of the current folder, together with the operations that change them.
//
// Remote failures never escape as panics. Each one is recorded on the
// Browser, reported through the Notifier and returned, and the Browser
// stays usable; the next navigation simply fetches again.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tonimelisma/spe-client/internal/logger"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

var (
	// ErrNotReady is returned when there is no signed-in account or no
	// container to browse.
	ErrNotReady = errors.New("not signed in or no container selected")
	// ErrNoToken is returned when no access token could be obtained.
	ErrNoToken = errors.New("authentication unavailable")
)

// TokenProvider hands out bearer tokens. An empty resource means Graph.
type TokenProvider interface {
	IsAuthenticated() bool
	GetAccessToken(ctx context.Context, resource string) (string, bool)
}

// ItemService performs the remote item operations with an explicit token.
type ItemService interface {
	ListChildren(ctx context.Context, token, containerID, folderID string) ([]spe.DriveItem, error)
	DeleteItem(ctx context.Context, token, containerID, itemID string) error
	CreateFolder(ctx context.Context, token, containerID, parentID, name string) (spe.DriveItem, error)
	UploadFile(ctx context.Context, token, containerID, parentID, name string, content io.Reader) (spe.DriveItem, error)
}

// Notifier shows transient messages to the user.
type Notifier interface {
	Success(title, message string)
	Error(title, message string)
}

type noopNotifier struct{}

func (noopNotifier) Success(string, string) {}
func (noopNotifier) Error(string, string)   {}

// State is a copy of the Browser's state.
type State struct {
	ContainerID     string          `json:"containerId"`
	Items           []spe.DriveItem `json:"items"`
	Loading         bool            `json:"loading"`
	Error           string          `json:"error,omitempty"`
	CurrentFolderID string          `json:"currentFolderId"`
	Path            Path            `json:"path"`
}

// Option customises a Browser.
type Option func(*Browser)

// WithNotifier sets where messages go.
func WithNotifier(n Notifier) Option {
	return func(b *Browser) {
		if n != nil {
			b.notify = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Browser) {
		b.logger = logger.OrNoop(l)
	}
}

// Browser is safe for concurrent use. Every fetch takes a generation
// number; a response that arrives after a newer fetch has started is
// dropped.
type Browser struct {
	containerID string
	tokens      TokenProvider
	service     ItemService
	notify      Notifier
	logger      logger.Logger

	mu              sync.Mutex
	items           []spe.DriveItem
	loading         bool
	errMsg          string
	currentFolderID string
	path            Path
	generation      uint64
}

// New returns a Browser positioned at the container root. Nothing is
// fetched until Fetch is called.
func New(containerID string, tokens TokenProvider, service ItemService, opts ...Option) *Browser {
	b := &Browser{
		containerID: containerID,
		tokens:      tokens,
		service:     service,
		notify:      noopNotifier{},
		logger:      logger.NoopLogger{},
		items:       []spe.DriveItem{},
		path:        NewPath(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ContainerID returns the container being browsed.
func (b *Browser) ContainerID() string {
	return b.containerID
}

// Snapshot returns a copy of the current state.
func (b *Browser) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := make([]spe.DriveItem, len(b.items))
	copy(items, b.items)
	path := make(Path, len(b.path))
	copy(path, b.path)

	return State{
		ContainerID:     b.containerID,
		Items:           items,
		Loading:         b.loading,
		Error:           b.errMsg,
		CurrentFolderID: b.currentFolderID,
		Path:            path,
	}
}

// Fetch lists the current folder and replaces the items.
func (b *Browser) Fetch(ctx context.Context) error {
	if b.containerID == "" || b.tokens == nil || !b.tokens.IsAuthenticated() {
		return ErrNotReady
	}

	b.mu.Lock()
	b.generation++
	gen := b.generation
	folderID := b.currentFolderID
	b.loading = true
	b.errMsg = ""
	b.mu.Unlock()

	token, ok := b.tokens.GetAccessToken(ctx, "")
	if !ok {
		if b.finish(gen, nil, ErrNoToken) {
			b.notify.Error("Authentication required", "Could not get an access token. Sign in and try again.")
		}
		return ErrNoToken
	}

	items, err := b.service.ListChildren(ctx, token, b.containerID, folderID)
	if !b.finish(gen, items, err) {
		b.logger.Debug("discarding superseded listing", "folder", folderID)
		return nil
	}
	if err != nil {
		b.notify.Error("Failed to load files", err.Error())
		return fmt.Errorf("listing folder: %w", err)
	}
	return nil
}

// finish stores the outcome of fetch gen. It reports false when a newer
// fetch has started since.
func (b *Browser) finish(gen uint64, items []spe.DriveItem, err error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		return false
	}
	b.loading = false
	if err != nil {
		b.errMsg = err.Error()
		return true
	}

	decorated := make([]spe.DriveItem, len(items))
	for i, item := range items {
		decorated[i] = spe.Decorate(item)
	}
	b.items = decorated
	b.errMsg = ""
	return true
}

// NavigateIntoFolder opens a child folder. An empty id is ignored.
func (b *Browser) NavigateIntoFolder(ctx context.Context, folderID, folderName string) error {
	if folderID == "" {
		return nil
	}

	b.mu.Lock()
	changed := b.currentFolderID != folderID
	if changed {
		b.currentFolderID = folderID
		b.path = b.path.Push(folderID, folderName)
	}
	b.mu.Unlock()

	if !changed {
		return nil
	}
	return b.Fetch(ctx)
}

// NavigateToBreadcrumb jumps back to a folder on the path and drops every
// breadcrumb after it. An id that is not on the path is ignored.
func (b *Browser) NavigateToBreadcrumb(ctx context.Context, folderID string) error {
	b.mu.Lock()
	path, ok := b.path.TruncateTo(folderID)
	if !ok {
		b.mu.Unlock()
		b.logger.Debug("breadcrumb not on path", "folder", folderID)
		return nil
	}
	changed := b.currentFolderID != folderID
	b.path = path
	b.currentFolderID = folderID
	b.mu.Unlock()

	if !changed {
		return nil
	}
	return b.Fetch(ctx)
}

// NavigateUp goes to the parent folder; at the root it does nothing.
func (b *Browser) NavigateUp(ctx context.Context) error {
	b.mu.Lock()
	parent, ok := b.path.Parent()
	b.mu.Unlock()

	if !ok {
		return nil
	}
	return b.NavigateToBreadcrumb(ctx, parent.ID)
}

// DeleteItem deletes item remotely and, once the server has confirmed,
// removes it from the items.
func (b *Browser) DeleteItem(ctx context.Context, item spe.DriveItem) error {
	token, ok := b.token(ctx)
	if !ok {
		return ErrNoToken
	}

	if err := b.service.DeleteItem(ctx, token, b.containerID, item.ID); err != nil {
		b.setError(err)
		b.notify.Error("Failed to delete "+item.Name, err.Error())
		return fmt.Errorf("deleting %s: %w", item.Name, err)
	}

	b.mu.Lock()
	kept := make([]spe.DriveItem, 0, len(b.items))
	for _, it := range b.items {
		if it.ID != item.ID {
			kept = append(kept, it)
		}
	}
	b.items = kept
	b.mu.Unlock()

	b.notify.Success("Deleted", item.Name)
	return nil
}

// CreateFolder creates a folder in the current folder and adds it to the
// items.
func (b *Browser) CreateFolder(ctx context.Context, name string) (spe.DriveItem, error) {
	if err := spe.ValidateItemName(name); err != nil {
		b.notify.Error("Invalid folder name", err.Error())
		return spe.DriveItem{}, err
	}

	token, ok := b.token(ctx)
	if !ok {
		return spe.DriveItem{}, ErrNoToken
	}

	parent := b.Snapshot().CurrentFolderID
	item, err := b.service.CreateFolder(ctx, token, b.containerID, parent, name)
	if err != nil {
		b.setError(err)
		b.notify.Error("Failed to create folder", err.Error())
		return spe.DriveItem{}, fmt.Errorf("creating folder %q: %w", name, err)
	}

	b.appendIfCurrent(parent, item)
	b.notify.Success("Folder created", item.Name)
	return item, nil
}

// Upload uploads content as name into the current folder and adds the new
// item to the items.
func (b *Browser) Upload(ctx context.Context, name string, content io.Reader) (spe.DriveItem, error) {
	if err := spe.ValidateItemName(name); err != nil {
		b.notify.Error("Invalid file name", err.Error())
		return spe.DriveItem{}, err
	}

	token, ok := b.token(ctx)
	if !ok {
		return spe.DriveItem{}, ErrNoToken
	}

	parent := b.Snapshot().CurrentFolderID
	item, err := b.service.UploadFile(ctx, token, b.containerID, parent, name, content)
	if err != nil {
		b.setError(err)
		b.notify.Error("Failed to upload "+name, err.Error())
		return spe.DriveItem{}, fmt.Errorf("uploading %q: %w", name, err)
	}

	b.appendIfCurrent(parent, item)
	b.notify.Success("Uploaded", item.Name)
	return item, nil
}

func (b *Browser) token(ctx context.Context) (string, bool) {
	if b.tokens == nil {
		return "", false
	}
	token, ok := b.tokens.GetAccessToken(ctx, "")
	if !ok {
		b.setError(ErrNoToken)
		b.notify.Error("Authentication required", "Could not get an access token. Sign in and try again.")
	}
	return token, ok
}

func (b *Browser) setError(err error) {
	b.mu.Lock()
	b.errMsg = err.Error()
	b.mu.Unlock()
}

// appendIfCurrent adds item unless the user has navigated elsewhere while
// the request was in flight.
func (b *Browser) appendIfCurrent(parent string, item spe.DriveItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.currentFolderID == parent {
		b.items = append(b.items, spe.Decorate(item))
	}
}
