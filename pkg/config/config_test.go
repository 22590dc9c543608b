package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ECOLEDGER_CONFIG", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "none", cfg.Relay.Mode)
	assert.Equal(t, 15.0, cfg.Ledger.DefaultPricePerCredit)
	assert.Equal(t, 10*time.Second, cfg.Relay.Timeout)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecoledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
storage:
  backend: sqlite
  data_dir: /var/lib/ecoledger
relay:
  mode: http
  url: http://gateway:3000/credits
  timeout: 3s
rate_limit:
  rps: 5
`), 0o600))

	t.Setenv("ECOLEDGER_CONFIG", path)
	t.Setenv("PORT", "7070")
	t.Setenv("RATE_LIMIT_BURST", "9")
	t.Setenv("DEFAULT_PRICE_PER_CREDIT", "22.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/ecoledger", cfg.Storage.DataDir)
	assert.Equal(t, "http", cfg.Relay.Mode)
	assert.Equal(t, 3*time.Second, cfg.Relay.Timeout)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, 9, cfg.RateLimit.Burst)
	assert.Equal(t, 22.5, cfg.Ledger.DefaultPricePerCredit)
	// untouched sections keep defaults
	assert.Equal(t, "fs", cfg.Archive.Type)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("ECOLEDGER_CONFIG", "")
	t.Setenv("RELAY_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("ECOLEDGER_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "mongodb" }},
		{"postgres without url", func(c *Config) { c.Storage.Backend = "postgres" }},
		{"http relay without url", func(c *Config) { c.Relay.Mode = "http" }},
		{"redis relay without addr", func(c *Config) { c.Relay.Mode = "redis" }},
		{"unknown relay", func(c *Config) { c.Relay.Mode = "fabric" }},
		{"unknown archive", func(c *Config) { c.Archive.Type = "ftp" }},
		{"negative price", func(c *Config) { c.Ledger.DefaultPricePerCredit = -1 }},
		{"bad log format", func(c *Config) { c.Server.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mut(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
