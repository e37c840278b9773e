package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends for the persisted session
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// LocalConfig holds configuration for the CLI and the console daemon
type LocalConfig struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Console ConsoleConfig `yaml:"console"`
}

// APIConfig holds backend client settings
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Retry          bool   `yaml:"retry"`
	CircuitBreaker bool   `yaml:"circuit_breaker"`

	// MaxConcurrentUploads bounds video uploads in flight
	MaxConcurrentUploads int `yaml:"max_concurrent_uploads"`

	// UploadTimeoutSeconds replaces timeout_seconds for video uploads
	UploadTimeoutSeconds int `yaml:"upload_timeout_seconds"`
}

// StorageConfig selects where the session is persisted
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"` // default: ~/.outreach/session
}

// ConsoleConfig holds console daemon settings
type ConsoleConfig struct {
	Port               int    `yaml:"port"`
	Bind               string `yaml:"bind"`
	LogLevel           string `yaml:"log_level"`
	LoginRatePerMinute int    `yaml:"login_rate_per_minute"`
}

// Timeout returns the per-request backend timeout
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// UploadTimeout returns the per-upload timeout as a duration
func (c APIConfig) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutSeconds) * time.Second
}

// Dir returns the storage directory, defaulting under base
func (c StorageConfig) Dir(base string) string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(base, "session")
}

// Addr returns the console listen address
func (c ConsoleConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// OutreachDir returns the path to ~/.outreach
func OutreachDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".outreach"), nil
}

// EnsureOutreachDir creates ~/.outreach and subdirectories if they don't exist
func EnsureOutreachDir() (string, error) {
	dir, err := OutreachDir()
	if err != nil {
		return "", err
	}

	subdirs := []string{
		"",
		"logs",
		"session",
	}

	for _, subdir := range subdirs {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0700); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		API: APIConfig{
			BaseURL:        "http://localhost:5100/api",
			TimeoutSeconds: 15,
			Retry:          true,
			CircuitBreaker: true,

			MaxConcurrentUploads: 2,
			UploadTimeoutSeconds: 600,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
		},
		Console: ConsoleConfig{
			Port:               7433,
			Bind:               "127.0.0.1",
			LogLevel:           "info",
			LoginRatePerMinute: 10,
		},
	}
}

// LoadLocalConfig loads ~/.outreach/config.yaml, applies environment
// overrides and validates the result.
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := OutreachDir()
	if err != nil {
		return nil, err
	}

	cfg := DefaultLocalConfig()
	configPath := filepath.Join(dir, "config.yaml")

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveLocalConfig saves configuration to ~/.outreach/config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsureOutreachDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(dir, "config.yaml")

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Validate checks that the configuration is usable
func (c *LocalConfig) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url %q must be an absolute http(s) URL", c.API.BaseURL)
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be positive, got %d", c.API.TimeoutSeconds)
	}

	if c.API.MaxConcurrentUploads < 0 {
		return fmt.Errorf("api.max_concurrent_uploads must not be negative")
	}

	if c.API.UploadTimeoutSeconds < 0 {
		return fmt.Errorf("api.upload_timeout_seconds must not be negative")
	}

	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("storage.backend %q must be one of file, sqlite, memory", c.Storage.Backend)
	}

	if c.Console.Port <= 0 || c.Console.Port > 65535 {
		return fmt.Errorf("console.port %d out of range", c.Console.Port)
	}
	if _, err := ParseLogLevel(c.Console.LogLevel); err != nil {
		return err
	}
	if c.Console.LoginRatePerMinute < 0 {
		return fmt.Errorf("console.login_rate_per_minute must not be negative")
	}
	return nil
}

// ParseLogLevel maps a config level name to a slog level
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}
