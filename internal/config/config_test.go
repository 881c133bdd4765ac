package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

// isolate points the loader at a temp file and clears the overrides.
func isolate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv(EnvConfigPath, path)
	for _, env := range []string{EnvClientID, EnvTenantID, EnvContainerTypeID, EnvAPIBaseURL} {
		t.Setenv(env, "")
	}
	return path
}

func TestDefaultHTTPConfig(t *testing.T) {
	assert.Equal(t, 30*time.Second, DefaultHTTPConfig().Timeout)
}

func TestLoadOrCreateWithDefaults(t *testing.T) {
	path := isolate(t)

	cfg, err := LoadOrCreate()
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, spe.DefaultGraphURL, cfg.APIBaseURL)
	assert.Equal(t, AuthFlowDevice, cfg.AuthFlow)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.False(t, cfg.LoginEnabled())
}

func TestLoadOrCreateBackwardCompatibility(t *testing.T) {
	path := isolate(t)

	old := map[string]interface{}{"client_id": "app", "debug": true}
	data, err := json.Marshal(old)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	cfg, err := LoadOrCreate()
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.ClientID)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, AuthFlowDevice, cfg.AuthFlow)
}

func TestEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvClientID, "env-client")
	t.Setenv(EnvTenantID, "env-tenant")
	t.Setenv(EnvContainerTypeID, "env-type")

	cfg, err := LoadOrCreate()
	require.NoError(t, err)
	assert.Equal(t, "env-client", cfg.ClientID)
	assert.Equal(t, "env-type", cfg.ContainerTypeID)
	assert.True(t, cfg.LoginEnabled())
}

func TestValidateNamesMissingValues(t *testing.T) {
	cfg := newDefault("unused")
	cfg.ClientID = "app"

	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Contains(t, err.Error(), "tenant_id")
	assert.Contains(t, err.Error(), "container_type_id")
	assert.NotContains(t, err.Error(), "client_id")

	cfg.TenantID, cfg.ContainerTypeID = "t", "ct"
	assert.NoError(t, cfg.Validate())

	cfg.APIBaseURL = " "
	assert.False(t, cfg.LoginEnabled())

	cfg.APIBaseURL = spe.DefaultGraphURL
	cfg.AuthFlow = "carrier-pigeon"
	assert.ErrorIs(t, cfg.Validate(), ErrIncomplete)
}

func TestSaveAndResetPreferences(t *testing.T) {
	path := isolate(t)

	cfg, err := LoadOrCreate()
	require.NoError(t, err)
	cfg.Preferences = Preferences{ShowDiagnostics: true, CompactView: true}
	require.NoError(t, cfg.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Preferences.ShowDiagnostics)

	require.NoError(t, loaded.ResetPreferences())
	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Preferences{}, reloaded.Preferences)
}

func TestSaveKeepsOverridesOutOfTheFile(t *testing.T) {
	path := isolate(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"tenant_id":"file-tenant","preferences":{"show_diagnostics":true}}`), 0600))
	t.Setenv(EnvClientID, "client-from-env")
	t.Setenv(EnvTenantID, "tenant-from-env")

	cfg, err := LoadOrCreate()
	require.NoError(t, err)
	assert.Equal(t, "tenant-from-env", cfg.TenantID)
	cfg.Debug = true
	require.NoError(t, cfg.ResetPreferences())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "from-env")

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.NotContains(t, doc, "client_id")
	assert.NotContains(t, doc, "debug")
	assert.JSONEq(t, `"file-tenant"`, string(doc["tenant_id"]))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Preferences{}, reloaded.Preferences)
	assert.False(t, reloaded.Debug)
	assert.Empty(t, reloaded.ClientID)
}

func TestSaveCreatesFileWithPreferencesOnly(t *testing.T) {
	path := isolate(t)
	t.Setenv(EnvClientID, "client-from-env")

	cfg, err := LoadOrCreate()
	require.NoError(t, err)
	cfg.Preferences.CompactView = true
	require.NoError(t, cfg.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"preferences":{"show_diagnostics":false,"compact_view":true}}`, string(data))
}
