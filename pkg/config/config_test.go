package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	cfg, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultSettings().BaseURL, cfg.BaseURL)
	assert.Equal(t, 0.5, cfg.MarginUsage)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
}

func TestLoadSettingsOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "margin_usage: 0.25\ncache_ttl: 2m\nbase_url: http://localhost:8080\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, 0.25, cfg.MarginUsage)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, 0.5, cfg.ProfitTarget, "unset keys keep their defaults")
}

func TestLoadSettingsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("margin_usage: [oops"), 0o600))

	_, err := LoadSettings(path)
	assert.Error(t, err)
}

func TestLoadSettingsDatabaseEnv(t *testing.T) {
	t.Setenv("STONKERS_DATABASE", "/tmp/elsewhere.db")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: /tmp/file.db\n"), 0o600))

	cfg, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere.db", cfg.Database)
}

func TestSaveAndLoadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "creds.yaml")
	creds := &Credentials{APIKey: "KEY", RedirectURI: "https://localhost"}

	require.NoError(t, SaveCredentials(path, creds))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, creds, loaded)
}

func TestLoadCredentialsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_key: KEY\n"), 0o600))

	_, err := LoadCredentials(path)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestSaveCredentialsStdout(t *testing.T) {
	assert.NoError(t, SaveCredentials("-", &Credentials{APIKey: "KEY"}))
}
