// Package config loads the credentials and settings files kept in the
// stonkers application directory.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const AppName = "stonkers"

var ErrMissingCredentials = errors.New("credentials must contain api_key and redirect_uri")

// Credentials are the brokerage application credentials written by setup.
type Credentials struct {
	APIKey      string `yaml:"api_key"`
	RedirectURI string `yaml:"redirect_uri"`
}

func (c *Credentials) Validate() error {
	if c.APIKey == "" || c.RedirectURI == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Settings holds tunables read from config.yaml.
type Settings struct {
	Database        string        `yaml:"database"`
	BaseURL         string        `yaml:"base_url"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	HistoryTTL      time.Duration `yaml:"history_ttl"`
	MarginUsage     float64       `yaml:"margin_usage"`
	ProfitTarget    float64       `yaml:"profit_target"`
	RetryMaxElapsed time.Duration `yaml:"retry_max_elapsed"`
	LogLevel        string        `yaml:"log_level"`
}

// AppDir returns the per-user stonkers directory.
func AppDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// EnsureAppDir creates the application directory with owner-only access.
func EnsureAppDir() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}

// DefaultPath joins name onto the application directory, falling back to the
// working directory when no user config directory exists.
func DefaultPath(name string) string {
	dir, err := AppDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, name)
}

func DefaultSettings() *Settings {
	return &Settings{
		Database:        getDefaultDatabasePath(),
		BaseURL:         "https://api.tdameritrade.com/v1",
		CacheTTL:        time.Minute,
		HistoryTTL:      15 * time.Minute,
		MarginUsage:     0.5,
		ProfitTarget:    0.5,
		RetryMaxElapsed: 30 * time.Second,
		LogLevel:        "warn",
	}
}

// LoadSettings reads path on top of the defaults. A missing file yields the
// defaults.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		path = DefaultPath("config.yaml")
	}

	cfg := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if db := os.Getenv("STONKERS_DATABASE"); db != "" {
		cfg.Database = db
	}

	return cfg, nil
}

// LoadCredentials reads the credentials file; "-" reads from stdin.
func LoadCredentials(path string) (*Credentials, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if err := creds.Validate(); err != nil {
		return nil, err
	}

	return &creds, nil
}

// SaveCredentials writes creds readable only by the owner. Writing to "-" is
// a no-op.
func SaveCredentials(path string, creds *Credentials) error {
	if path == "-" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return os.Chmod(path, 0o600)
}

func getDefaultDatabasePath() string {
	if path := os.Getenv("STONKERS_DATABASE"); path != "" {
		return path
	}
	return DefaultPath("stonkers.db")
}
