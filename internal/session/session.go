// Package session persists the signed-in account and its refresh token
// between runs. Every file access is guarded by a flock lock file so that
// concurrent CLI invocations cannot interleave writes.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const accountFile = "account.json"

// ErrLocked is returned when another process holds the session lock.
var ErrLocked = errors.New("could not acquire file lock, another instance may be running")

// Account identifies the signed-in user.
type Account struct {
	HomeAccountID string `json:"home_account_id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	TenantID      string `json:"tenant_id"`
}

// State is the on-disk token cache: the active account and the refresh
// token used for silent acquisition.
type State struct {
	Account      Account   `json:"account"`
	RefreshToken string    `json:"refresh_token"`
	SavedAt      time.Time `json:"saved_at"`
}

// Manager handles session file operations with configurable directory
type Manager struct {
	configDir string
}

// NewManager creates a new session manager with default config directory
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("could not get user config directory: %w", err)
	}
	return &Manager{
		configDir: filepath.Join(configDir, "spe-client"),
	}, nil
}

// NewManagerWithConfigDir creates a session manager with custom config directory
func NewManagerWithConfigDir(configDir string) *Manager {
	return &Manager{configDir: configDir}
}

func (m *Manager) getSessionDir() string {
	return filepath.Join(m.configDir, "sessions")
}

// withLock runs fn while holding the lock file next to path.
func (m *Manager) withLock(path string, fn func() error) error {
	if err := os.MkdirAll(m.getSessionDir(), 0700); err != nil {
		return fmt.Errorf("could not create session directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("could not acquire file lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	defer func() { _ = lock.Unlock() }()

	return fn()
}

// SaveAccount persists the account state.
func (m *Manager) SaveAccount(state *State) error {
	filePath := filepath.Join(m.getSessionDir(), accountFile)
	return m.withLock(filePath, func() error {
		if state.SavedAt.IsZero() {
			state.SavedAt = time.Now()
		}
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return fmt.Errorf("could not marshal account state: %w", err)
		}
		return os.WriteFile(filePath, data, 0600)
	})
}

// LoadAccount returns the saved account state, or (nil, nil) when nobody is
// signed in.
func (m *Manager) LoadAccount() (*State, error) {
	filePath := filepath.Join(m.getSessionDir(), accountFile)

	var state *State
	err := m.withLock(filePath, func() error {
		data, err := os.ReadFile(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("could not read account file: %w", err)
		}

		var s State
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("could not unmarshal account state: %w", err)
		}
		state = &s
		return nil
	})
	return state, err
}

// DeleteAccount removes the account state. Deleting a missing file is not
// an error.
func (m *Manager) DeleteAccount() error {
	filePath := filepath.Join(m.getSessionDir(), accountFile)
	return m.withLock(filePath, func() error {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("could not delete account file: %w", err)
		}
		return nil
	})
}
