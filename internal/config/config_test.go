package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/storybot/core/config"
	coredatabase "github.com/m3rciful/storybot/core/database"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSharesFileWithCore(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: t
  admin_id: 42
database:
  driver: memory
storage:
  timeout_ms: 1500
content:
  seed_path: " seed.yaml "
  contact:
    phone: "+70000000000"
    first_name: Support
`)
	t.Setenv("STORY_PATH", "plot.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(42), cfg.Telegram.AdminID)
	require.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	require.Equal(t, coredatabase.DriverMemory, cfg.Database.Driver)
	require.Equal(t, 1500*time.Millisecond, cfg.Storage.Timeout())
	require.Equal(t, 5*time.Minute, cfg.Storage.CatalogTTL())
	require.Equal(t, "seed.yaml", cfg.Content.SeedPath)
	require.Equal(t, "plot.yaml", cfg.Story.Path)
	require.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestNormalizeRejects(t *testing.T) {
	base := func() Config {
		return Config{
			Config:   coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "t"}},
			Database: coredatabase.Config{Driver: coredatabase.DriverMemory},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = "" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }},
		{"sqlite without path", func(c *Config) { c.Database.Driver = coredatabase.DriverSQLite }},
		{"negative timeout", func(c *Config) { c.Storage.TimeoutMS = -1 }},
		{"negative ttl", func(c *Config) { c.Storage.CatalogTTLSeconds = -1 }},
		{"negative capacity", func(c *Config) { c.Storage.CatalogCapacity = -1 }},
		{"contact without name", func(c *Config) { c.Content.Contact.Phone = "+7" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			require.Error(t, cfg.Normalize())
		})
	}

	cfg := base()
	require.NoError(t, cfg.Normalize())
}

func TestCoreConfigNil(t *testing.T) {
	var cfg *Config
	require.Nil(t, cfg.CoreConfig())
}
