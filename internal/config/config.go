// Package config loads and saves the client's settings: the app
// registration, the container type, the Graph root and the two UI
// preference flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

const (
	configDir  = "spe-client"
	configFile = "config.json"
)

// Environment variables that override the file.
const (
	EnvConfigPath      = "SPE_CONFIG_PATH"
	EnvClientID        = "SPE_CLIENT_ID"
	EnvTenantID        = "SPE_TENANT_ID"
	EnvContainerTypeID = "SPE_CONTAINER_TYPE_ID"
	EnvAPIBaseURL      = "SPE_API_BASE_URL"
)

// Interactive sign-in flows.
const (
	AuthFlowDevice  = "device"
	AuthFlowBrowser = "browser"
)

// ErrIncomplete is returned by Validate when required values are missing.
var ErrIncomplete = errors.New("configuration is incomplete")

// HTTPConfig holds HTTP client settings.
type HTTPConfig struct {
	Timeout time.Duration `json:"timeout"`
}

// DefaultHTTPConfig returns the default HTTP settings.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{Timeout: spe.DefaultTimeout}
}

// Preferences are the locally persisted UI flags. Logout resets them.
type Preferences struct {
	ShowDiagnostics bool `json:"show_diagnostics"`
	CompactView     bool `json:"compact_view"`
}

// Configuration struct holds all the application's persisted settings.
type Configuration struct {
	ClientID        string      `json:"client_id"`
	TenantID        string      `json:"tenant_id"`
	ContainerTypeID string      `json:"container_type_id"`
	APIBaseURL      string      `json:"api_base_url"`
	AuthFlow        string      `json:"auth_flow"`
	Debug           bool        `json:"debug"`
	HTTP            HTTPConfig  `json:"http"`
	Preferences     Preferences `json:"preferences"`

	path string
	mu   sync.RWMutex
}

// LoginEnabled reports whether every value needed to sign in is set.
func (c *Configuration) LoginEnabled() bool {
	return c.Validate() == nil
}

// Validate names the missing required values.
func (c *Configuration) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"client_id", c.ClientID},
		{"tenant_id", c.TenantID},
		{"container_type_id", c.ContainerTypeID},
		{"api_base_url", c.APIBaseURL},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	if c.AuthFlow != AuthFlowDevice && c.AuthFlow != AuthFlowBrowser {
		return fmt.Errorf("%w: auth_flow must be %q or %q", ErrIncomplete, AuthFlowDevice, AuthFlowBrowser)
	}
	return nil
}

// Path returns where the configuration is saved.
func (c *Configuration) Path() string {
	return c.path
}

// Save writes the preference flags into the configuration file. Every
// other key in the file is left as it is, so environment overrides and
// per-run flags never become file state.
func (c *Configuration) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := map[string]json.RawMessage{}
	data, err := os.ReadFile(c.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("unmarshalling json: %w", err)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("reading configuration file: %w", err)
	}
	if doc == nil {
		doc = map[string]json.RawMessage{}
	}

	prefs, err := json.Marshal(c.Preferences)
	if err != nil {
		return fmt.Errorf("marshalling preferences: %w", err)
	}
	doc["preferences"] = prefs

	jsonData, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling config to JSON: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(c.path, jsonData, 0600); err != nil {
		return fmt.Errorf("writing configuration file: %w", err)
	}
	return nil
}

// ResetPreferences clears the UI flags and saves.
func (c *Configuration) ResetPreferences() error {
	c.mu.Lock()
	c.Preferences = Preferences{}
	c.mu.Unlock()
	return c.Save()
}

// ConfigPath returns SPE_CONFIG_PATH or <UserConfigDir>/spe-client/config.json.
func ConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting user config directory: %w", err)
	}
	return filepath.Join(dir, configDir, configFile), nil
}

// Load reads the configuration file from disk.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := newDefault(path)
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling json: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadOrCreate loads .env from the working directory, then the
// configuration file (defaults when it does not exist), then applies the
// environment overrides.
func LoadOrCreate() (*Configuration, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = newDefault(path)
	}
	cfg.applyEnv()
	return cfg, nil
}

func newDefault(path string) *Configuration {
	return &Configuration{
		APIBaseURL: spe.DefaultGraphURL,
		AuthFlow:   AuthFlowDevice,
		HTTP:       DefaultHTTPConfig(),
		path:       path,
	}
}

func (c *Configuration) applyDefaults() {
	if c.HTTP.Timeout <= 0 {
		c.HTTP = DefaultHTTPConfig()
	}
	if c.AuthFlow == "" {
		c.AuthFlow = AuthFlowDevice
	}
}

func (c *Configuration) applyEnv() {
	for env, field := range map[string]*string{
		EnvClientID:        &c.ClientID,
		EnvTenantID:        &c.TenantID,
		EnvContainerTypeID: &c.ContainerTypeID,
		EnvAPIBaseURL:      &c.APIBaseURL,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*field = v
		}
	}
}
