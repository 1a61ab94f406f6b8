package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 96, cfg.IconSize)
	assert.Equal(t, 2*time.Second, cfg.MetadataTTL)
	assert.EqualValues(t, 5*1024*1024, cfg.MaxIconFileSize)
	assert.True(t, cfg.PersistIcons)
	assert.Equal(t, "production", cfg.Environment)
	assert.NotEmpty(t, cfg.ShortcutsPath)
	require.NoError(t, cfg.Validate())
}

func TestConfigForEnvironment(t *testing.T) {
	dev := ConfigForEnvironment("development")
	assert.Equal(t, "development", dev.Environment)
	assert.Equal(t, "debug", dev.Log.Level)
	require.NoError(t, dev.Validate())

	test := ConfigForEnvironment("test")
	assert.False(t, test.PersistIcons)
	require.NoError(t, test.Validate())

	prod := ConfigForEnvironment("anything-else")
	assert.Equal(t, "production", prod.Environment)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LAUNCHBOX_SHORTCUTS_PATH", `C:\Launch`)
	t.Setenv("LAUNCHBOX_ICON_SIZE", "64")
	t.Setenv("LAUNCHBOX_METADATA_TTL", "500ms")
	t.Setenv("LAUNCHBOX_MAX_ICON_FILE_SIZE", "1024")
	t.Setenv("LAUNCHBOX_CONCURRENCY", "not-a-number")
	t.Setenv("LAUNCHBOX_PERSIST_ICONS", "off")
	t.Setenv("LAUNCHBOX_ENVIRONMENT", "development")
	t.Setenv("LAUNCHBOX_LOG_LEVEL", "warn")
	t.Setenv("LAUNCHBOX_LOG_MODE", "dev")

	cfg := DefaultConfig()
	cfg.LoadFromEnvironment()

	assert.Equal(t, `C:\Launch`, cfg.ShortcutsPath)
	assert.Equal(t, 64, cfg.IconSize)
	assert.Equal(t, 500*time.Millisecond, cfg.MetadataTTL)
	assert.EqualValues(t, 1024, cfg.MaxIconFileSize)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.False(t, cfg.PersistIcons)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "dev", cfg.Log.Mode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty shortcuts path", func(c *Config) { c.ShortcutsPath = "  " }},
		{"unc shortcuts path", func(c *Config) { c.ShortcutsPath = `\\fileserver\share\Shortcuts` }},
		{"nt object shortcuts path", func(c *Config) { c.ShortcutsPath = `\??\C:\Shortcuts` }},
		{"zero icon size", func(c *Config) { c.IconSize = 0 }},
		{"huge icon size", func(c *Config) { c.IconSize = 512 }},
		{"zero ttl", func(c *Config) { c.MetadataTTL = 0 }},
		{"zero max size", func(c *Config) { c.MaxIconFileSize = 0 }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"bad environment", func(c *Config) { c.Environment = "staging" }},
		{"bad log mode", func(c *Config) { c.Log.Mode = "loud" }},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_ErrorIsRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShortcutsPath = `\\fileserver\Secret\Shortcuts`

	err := cfg.Validate()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "fileserver")
	assert.NotContains(t, err.Error(), "Secret")
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value   string
		want    bool
		present bool
	}{
		{"", false, false},
		{"true", true, true},
		{"0", false, true},
		{"YES", true, true},
		{"Off", false, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("LAUNCHBOX_TEST_BOOL", tt.value)
			got, present := ParseBoolEnv("LAUNCHBOX_TEST_BOOL")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.present, present)
		})
	}
}
