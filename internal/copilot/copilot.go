// Package copilot manages a Copilot chat session scoped to one container.
// The chat widget itself is rendered elsewhere; a Session supplies what it
// needs: a mount key, a token callback and the reset behaviour on failure.
package copilot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tonimelisma/spe-client/internal/logger"
)

// ErrNoToken is returned by the auth callback when no token is available.
var ErrNoToken = errors.New("could not get a SharePoint token for chat")

// Presentation selects the chrome around the chat.
type Presentation int

const (
	// Desktop shows the chat in a side sheet.
	Desktop Presentation = iota
	// Mobile shows the chat in a bottom drawer and offers an external link.
	Mobile
)

func (p Presentation) String() string {
	if p == Mobile {
		return "mobile"
	}
	return "desktop"
}

// ParsePresentation accepts "desktop" or "mobile".
func ParsePresentation(s string) (Presentation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desktop":
		return Desktop, nil
	case "mobile":
		return Mobile, nil
	}
	return Desktop, fmt.Errorf("unknown presentation %q", s)
}

// TokenProvider returns SharePoint tokens for a hostname.
type TokenProvider interface {
	GetSharePointToken(ctx context.Context, hostname string) (string, bool)
}

// AuthProvider is the lazy token callback handed to the widget.
type AuthProvider func(ctx context.Context) (string, error)

// EmbedConfig is everything a host page needs to mount the widget.
type EmbedConfig struct {
	ContainerID  string `json:"containerId"`
	Hostname     string `json:"hostname"`
	MountKey     string `json:"mountKey"`
	Presentation string `json:"presentation"`
	ExternalURL  string `json:"externalUrl,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Session is safe for concurrent use.
type Session struct {
	containerID  string
	hostname     string
	presentation Presentation
	tokens       TokenProvider
	logger       logger.Logger

	mu       sync.Mutex
	mountKey string
	open     bool
	lastErr  error
}

// NewSession returns a closed session. hostname is the SharePoint host of
// the container, e.g. contoso.sharepoint.com.
func NewSession(containerID, hostname string, presentation Presentation, tokens TokenProvider, l logger.Logger) *Session {
	return &Session{
		containerID:  containerID,
		hostname:     HostnameOf(hostname),
		presentation: presentation,
		tokens:       tokens,
		logger:       logger.OrNoop(l),
	}
}

// HostnameOf extracts the host from a URL or returns s trimmed.
func HostnameOf(s string) string {
	s = strings.TrimSpace(s)
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		return u.Host
	}
	return strings.TrimSuffix(s, "/")
}

// Open opens the chat with a fresh mount key and no error.
func (s *Session) Open() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	s.lastErr = nil
	s.mountKey = uuid.NewString()
	return s.mountKey
}

// Close closes the chat.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
}

// IsOpen reports whether the chat is open.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// MountKey is the current key; a new key forces the widget to remount.
func (s *Session) MountKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mountKey
}

// AuthProvider returns the callback the widget calls whenever it needs a
// token. Nothing is fetched until then.
func (s *Session) AuthProvider() AuthProvider {
	return func(ctx context.Context) (string, error) {
		token, ok := s.tokens.GetSharePointToken(ctx, s.hostname)
		if !ok {
			err := fmt.Errorf("%w: %s", ErrNoToken, s.hostname)
			s.ReportError(err)
			return "", err
		}
		return token, nil
	}
}

// ReportError records a failure reported by the widget.
func (s *Session) ReportError(err error) {
	if err == nil {
		return
	}
	s.logger.Warn("copilot chat failed", "container", s.containerID, "error", err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// Err returns the last reported failure.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// NeedsReset reports whether a failure is waiting for Reset.
func (s *Session) NeedsReset() bool {
	return s.Err() != nil
}

// Reset remounts the widget with a new key instead of recovering in place.
func (s *Session) Reset() string {
	return s.Open()
}

// ExternalChatURL deep-links to the host site's own chat surface. It is
// only offered in the mobile presentation.
func (s *Session) ExternalChatURL() (string, bool) {
	if s.presentation != Mobile || s.hostname == "" {
		return "", false
	}
	return "https://" + s.hostname + "/_layouts/15/copilot.aspx", true
}

// EmbedConfig describes the session for a host page.
func (s *Session) EmbedConfig() EmbedConfig {
	cfg := EmbedConfig{
		ContainerID:  s.containerID,
		Hostname:     s.hostname,
		MountKey:     s.MountKey(),
		Presentation: s.presentation.String(),
	}
	if u, ok := s.ExternalChatURL(); ok {
		cfg.ExternalURL = u
	}
	if err := s.Err(); err != nil {
		cfg.Error = err.Error()
	}
	return cfg
}
