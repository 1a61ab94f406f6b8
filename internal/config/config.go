// Package config holds the launcher settings shared by the desktop shell and
// the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"launchbox/internal/infrastructure/logging"
	"launchbox/internal/pathsec"
)

const (
	DefaultIconSize        = 96
	DefaultMetadataTTL     = 2 * time.Second
	DefaultMaxIconFileSize = 5 * 1024 * 1024
	DefaultConcurrency     = 8
)

// Config holds the launcher settings.
type Config struct {
	ShortcutsPath   string         `json:"shortcutsPath"`
	IconSize        int            `json:"iconSize"`        // pixels requested from the shell
	MetadataTTL     time.Duration  `json:"metadataTtl"`     // lifetime of cached timestamps and listings
	MaxIconFileSize int64          `json:"maxIconFileSize"` // custom icons above this are ignored
	Concurrency     int            `json:"concurrency"`     // parallel icon extractions per load
	PersistIcons    bool           `json:"persistIcons"`    // keep resolved icons in the SQLite store
	Environment     string         `json:"environment"`     // development, production, test
	Log             logging.Config `json:"log"`
}

// DefaultShortcutsPath is the Shortcuts folder on the user's desktop.
func DefaultShortcutsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "Shortcuts"
	}
	return filepath.Join(home, "Desktop", "Shortcuts")
}

// DefaultConfig returns the production settings.
func DefaultConfig() *Config {
	return &Config{
		ShortcutsPath:   DefaultShortcutsPath(),
		IconSize:        DefaultIconSize,
		MetadataTTL:     DefaultMetadataTTL,
		MaxIconFileSize: DefaultMaxIconFileSize,
		Concurrency:     DefaultConcurrency,
		PersistIcons:    true,
		Environment:     "production",
		Log:             logging.Config{Level: "info", Mode: "prod"},
	}
}

// ConfigForEnvironment returns the settings tuned for env.
func ConfigForEnvironment(env string) *Config {
	cfg := DefaultConfig()
	switch env {
	case "development":
		cfg.Environment = env
		cfg.Log = logging.Config{Level: "debug", Mode: "dev"}
	case "test":
		cfg.Environment = env
		cfg.PersistIcons = false
		cfg.Concurrency = 2
		cfg.Log = logging.Config{Level: "error", Mode: "dev"}
	}
	return cfg
}

// LoadFromEnvironment applies LAUNCHBOX_* overrides. Malformed values are
// ignored and leave the current setting in place.
func (c *Config) LoadFromEnvironment() {
	if v := os.Getenv("LAUNCHBOX_SHORTCUTS_PATH"); v != "" {
		c.ShortcutsPath = v
	}
	if v := os.Getenv("LAUNCHBOX_ICON_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.IconSize = n
		}
	}
	if v := os.Getenv("LAUNCHBOX_METADATA_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.MetadataTTL = d
		}
	}
	if v := os.Getenv("LAUNCHBOX_MAX_ICON_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.MaxIconFileSize = n
		}
	}
	if v := os.Getenv("LAUNCHBOX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Concurrency = n
		}
	}
	if v, ok := ParseBoolEnv("LAUNCHBOX_PERSIST_ICONS"); ok {
		c.PersistIcons = v
	}
	if v := os.Getenv("LAUNCHBOX_ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LAUNCHBOX_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LAUNCHBOX_LOG_MODE"); v != "" {
		c.Log.Mode = v
	}
}

// Validate checks the settings. The shortcuts folder must be a local path.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ShortcutsPath) == "" {
		return fmt.Errorf("shortcutsPath cannot be empty")
	}
	if pathsec.IsUnsafePath(c.ShortcutsPath) {
		return fmt.Errorf("shortcutsPath %s is not a local path", pathsec.RedactPath(c.ShortcutsPath))
	}
	if c.IconSize <= 0 || c.IconSize > 256 {
		return fmt.Errorf("iconSize must be between 1 and 256, got %d", c.IconSize)
	}
	if c.MetadataTTL <= 0 {
		return fmt.Errorf("metadataTtl must be positive, got %v", c.MetadataTTL)
	}
	if c.MaxIconFileSize <= 0 {
		return fmt.Errorf("maxIconFileSize must be positive, got %d", c.MaxIconFileSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}

	switch c.Environment {
	case "development", "test", "production":
	default:
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	switch strings.ToLower(c.Log.Mode) {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid log mode: %s", c.Log.Mode)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	return nil
}

// ParseBoolEnv reads a boolean variable. The second result reports whether
// the variable held a recognizable value. Beyond strconv.ParseBool it accepts
// yes/no, y/n and on/off in any case.
func ParseBoolEnv(key string) (bool, bool) {
	value := os.Getenv(key)
	if value == "" {
		return false, false
	}
	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed, true
	}
	switch strings.ToLower(value) {
	case "yes", "y", "on":
		return true, true
	case "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
