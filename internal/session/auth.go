package session

// auth.go keeps the pending device code on disk while the user signs in, so
// that `auth status` in another terminal can show the code to enter.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const authSessionFile = "auth_session.json"

// AuthState represents the state of a pending device code authentication flow.
type AuthState struct {
	VerificationURI string    `json:"verification_uri"`
	UserCode        string    `json:"user_code"`
	ExpiresAt       time.Time `json:"expires_at"`
}

func (m *Manager) getAuthSessionFilePath() string {
	return filepath.Join(m.getSessionDir(), authSessionFile)
}

// SaveAuthState persists the pending authentication state to a file.
func (m *Manager) SaveAuthState(state *AuthState) error {
	filePath := m.getAuthSessionFilePath()
	return m.withLock(filePath, func() error {
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling auth session state: %w", err)
		}
		return os.WriteFile(filePath, data, 0600)
	})
}

// LoadAuthState returns the pending state, or (nil, nil) when no sign-in is
// in progress. An expired code is cleaned up and reported as absent.
func (m *Manager) LoadAuthState() (*AuthState, error) {
	filePath := m.getAuthSessionFilePath()

	var state *AuthState
	err := m.withLock(filePath, func() error {
		data, err := os.ReadFile(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("reading auth session file '%s': %w", filePath, err)
		}

		var s AuthState
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("unmarshalling auth session state from '%s': %w", filePath, err)
		}
		if !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt) {
			_ = os.Remove(filePath)
			return nil
		}
		state = &s
		return nil
	})
	return state, err
}

// DeleteAuthState removes the authentication session state file.
func (m *Manager) DeleteAuthState() error {
	filePath := m.getAuthSessionFilePath()
	return m.withLock(filePath, func() error {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("deleting auth session file '%s': %w", filePath, err)
		}
		return nil
	})
}
