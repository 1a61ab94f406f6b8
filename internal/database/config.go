package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"launchbox/internal/config"
)

const memoryPath = ":memory:"

// Config holds the icon store settings.
type Config struct {
	Path                  string        `json:"path"`
	MaxConnections        int           `json:"maxConnections"`
	MaxIdleConns          int           `json:"maxIdleConns"`
	ConnMaxLifetime       time.Duration `json:"connMaxLifetime"`
	ConnMaxIdleTime       time.Duration `json:"connMaxIdleTime"`
	ForceSingleConnection bool          `json:"forceSingleConnection"`
	AutoMigrate           bool          `json:"autoMigrate"`

	JournalMode     string `json:"journalMode"`     // WAL, DELETE, MEMORY, ...
	SynchronousMode string `json:"synchronousMode"` // OFF, NORMAL, FULL, EXTRA
	CacheSize       int    `json:"cacheSize"`       // KiB
	BusyTimeout     int    `json:"busyTimeout"`     // milliseconds
	ForeignKeys     bool   `json:"foreignKeys"`

	Environment string `json:"environment"`
}

// DefaultStorePath places the store in the user cache directory.
func DefaultStorePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "launchbox-icons.db"
	}
	return filepath.Join(dir, "launchbox", "icons.db")
}

// DefaultConfig returns the production store settings.
func DefaultConfig() *Config {
	return &Config{
		Path:            DefaultStorePath(),
		MaxConnections:  4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		AutoMigrate:     true,
		JournalMode:     "WAL",
		SynchronousMode: "NORMAL",
		CacheSize:       4096,
		BusyTimeout:     5000,
		ForeignKeys:     true,
		Environment:     "production",
	}
}

// DevelopmentConfig keeps the store next to the binary.
func DevelopmentConfig() *Config {
	cfg := DefaultConfig()
	cfg.Path = "launchbox_dev.db"
	cfg.Environment = "development"
	return cfg
}

// TestConfig uses a private in-memory database.
func TestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Path = memoryPath
	cfg.Environment = "test"
	cfg.JournalMode = "MEMORY"
	cfg.SynchronousMode = "OFF"
	cfg.CacheSize = 1000
	cfg.BusyTimeout = 1000
	return cfg
}

// ConfigForEnvironment returns the settings tuned for env.
func ConfigForEnvironment(env string) *Config {
	switch env {
	case "development":
		return DevelopmentConfig()
	case "test":
		return TestConfig()
	default:
		return DefaultConfig()
	}
}

// LoadFromEnvironment applies LAUNCHBOX_DB_* overrides. Malformed values are
// ignored.
func (c *Config) LoadFromEnvironment() {
	if v := os.Getenv("LAUNCHBOX_DB_PATH"); v != "" {
		c.Path = v
	}
	if v := os.Getenv("LAUNCHBOX_DB_MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxConnections = n
		}
	}
	if v := os.Getenv("LAUNCHBOX_DB_MAX_IDLE_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.MaxIdleConns = n
		}
	}
	if v := os.Getenv("LAUNCHBOX_DB_CONN_MAX_LIFETIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ConnMaxLifetime = d
		}
	}
	if v, ok := config.ParseBoolEnv("LAUNCHBOX_DB_FORCE_SINGLE_CONNECTION"); ok {
		c.ForceSingleConnection = v
	}
	if v, ok := config.ParseBoolEnv("LAUNCHBOX_DB_AUTO_MIGRATE"); ok {
		c.AutoMigrate = v
	}
	if v := os.Getenv("LAUNCHBOX_DB_JOURNAL_MODE"); v != "" {
		c.JournalMode = strings.ToUpper(v)
	}
	if v := os.Getenv("LAUNCHBOX_DB_SYNCHRONOUS_MODE"); v != "" {
		c.SynchronousMode = strings.ToUpper(v)
	}
	if v := os.Getenv("LAUNCHBOX_DB_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.CacheSize = n
		}
	}
	if v := os.Getenv("LAUNCHBOX_DB_BUSY_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.BusyTimeout = n
		}
	}
	if v := os.Getenv("LAUNCHBOX_ENVIRONMENT"); v != "" {
		c.Environment = v
	}
}

// Validate checks the settings and creates the store directory when missing.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if !c.IsInMemory() {
		dir := filepath.Dir(c.Path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	if c.MaxConnections <= 0 {
		return fmt.Errorf("maxConnections must be positive, got %d", c.MaxConnections)
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("maxIdleConns cannot be negative, got %d", c.MaxIdleConns)
	}
	if c.MaxIdleConns > c.MaxConnections {
		return fmt.Errorf("maxIdleConns (%d) cannot be greater than maxConnections (%d)", c.MaxIdleConns, c.MaxConnections)
	}
	if c.ConnMaxLifetime < 0 || c.ConnMaxIdleTime < 0 {
		return fmt.Errorf("connection lifetimes cannot be negative")
	}

	switch strings.ToUpper(c.JournalMode) {
	case "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF":
	default:
		return fmt.Errorf("invalid journalMode: %s", c.JournalMode)
	}
	if c.IsInMemory() && strings.EqualFold(c.JournalMode, "WAL") {
		return fmt.Errorf("journalMode cannot be WAL when using in-memory database")
	}

	switch strings.ToUpper(c.SynchronousMode) {
	case "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		return fmt.Errorf("invalid synchronousMode: %s", c.SynchronousMode)
	}

	if c.CacheSize <= 0 {
		return fmt.Errorf("cacheSize must be positive, got %d", c.CacheSize)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busyTimeout cannot be negative, got %d", c.BusyTimeout)
	}

	switch c.Environment {
	case "development", "test", "production":
	default:
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}
	return nil
}

// GetConnectionString builds the go-sqlite3 DSN.
func (c *Config) GetConnectionString() string {
	values := url.Values{}
	if c.ForeignKeys {
		values.Set("_foreign_keys", "on")
	} else {
		values.Set("_foreign_keys", "off")
	}
	values.Set("_journal_mode", c.JournalMode)
	values.Set("_synchronous", c.SynchronousMode)
	// Negative cache_size is interpreted by SQLite as KiB.
	values.Set("_cache_size", strconv.Itoa(-c.CacheSize))
	values.Set("_busy_timeout", strconv.Itoa(c.BusyTimeout))

	path := c.Path
	if strings.ContainsAny(path, "?&") {
		path = strings.ReplaceAll(path, "?", "%3F")
		path = strings.ReplaceAll(path, "&", "%26")
	}
	return path + "?" + values.Encode()
}

// Clone returns a copy of c.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// IsInMemory reports whether the store lives only in memory.
func (c *Config) IsInMemory() bool {
	return c.Path == memoryPath
}
