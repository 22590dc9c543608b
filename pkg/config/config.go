// Package config loads node configuration from defaults, an optional YAML file
// and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds node configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Relay     RelayConfig     `yaml:"relay"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

type ServerConfig struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "json" | "text"
}

type StorageConfig struct {
	Backend     string `yaml:"backend"` // memory | file | sqlite | postgres | leveldb
	DataDir     string `yaml:"data_dir"`
	DatabaseURL string `yaml:"database_url"`
}

type LedgerConfig struct {
	DefaultPricePerCredit float64 `yaml:"default_price_per_credit"`
}

type RelayConfig struct {
	Mode          string        `yaml:"mode"` // none | http | redis
	URL           string        `yaml:"url"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Stream        string        `yaml:"stream"`
	Timeout       time.Duration `yaml:"timeout"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

type ArchiveConfig struct {
	Type     string `yaml:"type"` // fs | s3 | gcs
	Dir      string `yaml:"dir"`
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Prefix   string `yaml:"prefix"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8080", LogLevel: "INFO", LogFormat: "json"},
		Storage:   StorageConfig{Backend: "file", DataDir: "data"},
		Ledger:    LedgerConfig{DefaultPricePerCredit: 15.0},
		Relay:     RelayConfig{Mode: "none", Stream: "ecoledger:issuances", Timeout: 10 * time.Second},
		RateLimit: RateLimitConfig{RPS: 20, Burst: 40},
		Telemetry: TelemetryConfig{Endpoint: "localhost:4317", Insecure: true, ServiceName: "ecoledger"},
		Archive:   ArchiveConfig{Type: "fs", Dir: "data/archive"},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// ECOLEDGER_CONFIG when set, then environment overrides.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("ECOLEDGER_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Server.Port)
	str("LOG_LEVEL", &c.Server.LogLevel)
	str("LOG_FORMAT", &c.Server.LogFormat)
	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("DATA_DIR", &c.Storage.DataDir)
	str("DATABASE_URL", &c.Storage.DatabaseURL)
	str("RELAY_MODE", &c.Relay.Mode)
	str("RELAY_URL", &c.Relay.URL)
	str("REDIS_ADDR", &c.Relay.RedisAddr)
	str("REDIS_PASSWORD", &c.Relay.RedisPassword)
	str("RELAY_STREAM", &c.Relay.Stream)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Telemetry.Endpoint)
	str("ARCHIVE_TYPE", &c.Archive.Type)
	str("ARCHIVE_DIR", &c.Archive.Dir)
	str("ARCHIVE_BUCKET", &c.Archive.Bucket)
	str("ARCHIVE_REGION", &c.Archive.Region)
	str("ARCHIVE_ENDPOINT", &c.Archive.Endpoint)
	str("ARCHIVE_PREFIX", &c.Archive.Prefix)

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Relay.RedisDB = n
	}
	if v := os.Getenv("RELAY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RELAY_TIMEOUT: %w", err)
		}
		c.Relay.Timeout = d
	}
	if v := os.Getenv("DEFAULT_PRICE_PER_CREDIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DEFAULT_PRICE_PER_CREDIT: %w", err)
		}
		c.Ledger.DefaultPricePerCredit = f
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimit.RPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		c.RateLimit.Burst = n
	}
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true"
	}
	if v := os.Getenv("OTEL_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true"
	}
	return nil
}

// Validate rejects unknown backends and modes and missing required settings.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "file", "sqlite", "leveldb":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("config: storage backend postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Relay.Mode {
	case "none", "":
	case "http":
		if c.Relay.URL == "" {
			return fmt.Errorf("config: relay mode http requires RELAY_URL")
		}
	case "redis":
		if c.Relay.RedisAddr == "" {
			return fmt.Errorf("config: relay mode redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown relay mode %q", c.Relay.Mode)
	}

	switch c.Archive.Type {
	case "fs", "s3", "gcs":
	default:
		return fmt.Errorf("config: unknown archive type %q", c.Archive.Type)
	}

	switch strings.ToLower(c.Server.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Server.LogFormat)
	}

	if c.Ledger.DefaultPricePerCredit < 0 {
		return fmt.Errorf("config: default price per credit must be non-negative")
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("config: rate limit must be non-negative")
	}
	return nil
}
