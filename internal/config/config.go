// Package config handles the configuration directory, its files, and the
// optional config.yaml settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "tasksheet"

	// ConfigFile is the settings filename.
	ConfigFile = "config.yaml"

	// DatabaseFile holds local state.
	DatabaseFile = "tasksheet.db"

	// LogFile receives application logs.
	LogFile = "tasksheet.log"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// EndpointEnv overrides the endpoint from every other source.
	EndpointEnv = "TASKSHEET_ENDPOINT"
)

// Remote backends.
const (
	BackendScript = "script"
	BackendSheets = "sheets"
)

// File is the content of config.yaml. Absent keys keep their defaults.
type File struct {
	Endpoint      string        `yaml:"endpoint"`
	Backend       string        `yaml:"backend"`
	SpreadsheetID string        `yaml:"spreadsheet_id"`
	SheetName     string        `yaml:"sheet_name"`
	Debounce      time.Duration `yaml:"debounce"`
	SyncInterval  time.Duration `yaml:"sync_interval"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	FlushOnExit   bool          `yaml:"flush_on_exit"`
}

// DefaultFile returns the settings used when config.yaml is missing.
func DefaultFile() File {
	return File{
		Backend:       BackendScript,
		SheetName:     "Tasks",
		Debounce:      2 * time.Second,
		SyncInterval:  5 * time.Minute,
		HTTPTimeout:   30 * time.Second,
		ProbeInterval: 15 * time.Second,
		FlushOnExit:   true,
	}
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Offline disables every remote call for this run.
	Offline bool

	// File holds the parsed config.yaml.
	File File
}

// New creates a Config for the default or specified directory and loads
// config.yaml from it if present.
// If configDir is empty, uses XDG_CONFIG_HOME/tasksheet or $HOME/.config/tasksheet.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir, File: DefaultFile()}
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// Load reads config.yaml over the defaults. A missing file is not an error.
func (c *Config) Load() error {
	f, err := ReadFile(c.ConfigPath())
	if err != nil {
		return err
	}
	c.File = f
	return nil
}

// ReadFile parses a config file over the defaults.
func ReadFile(path string) (File, error) {
	f := DefaultFile()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return DefaultFile(), fmt.Errorf("invalid %s: %w", filepath.Base(path), err)
	}
	switch f.Backend {
	case "":
		f.Backend = BackendScript
	case BackendScript, BackendSheets:
	default:
		return DefaultFile(), fmt.Errorf("invalid %s: unknown backend %q", filepath.Base(path), f.Backend)
	}
	return f, nil
}

// ResolveEndpoint picks the endpoint URL: environment first, then
// config.yaml, then the URL saved by the endpoint command.
func (c *Config) ResolveEndpoint(saved string) string {
	if env := strings.TrimSpace(os.Getenv(EndpointEnv)); env != "" {
		return env
	}
	if f := strings.TrimSpace(c.File.Endpoint); f != "" {
		return f
	}
	return strings.TrimSpace(saved)
}

// ConfigPath returns the path to config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// DatabasePath returns the path to the local state database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Dir, DatabaseFile)
}

// LogPath returns the path to the log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Dir, LogFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
