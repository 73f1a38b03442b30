// Package config loads dashboard process settings from a YAML file, an
// optional .env file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverSupabase = "supabase"
)

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
	Supabase SupabaseConfig `yaml:"supabase"`
	Redis    RedisConfig    `yaml:"redis"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr" env:"DASHBOARD_ADDR"`
	BasePath string `yaml:"base_path" env:"DASHBOARD_BASE_PATH"`
}

type LogConfig struct {
	Mode  string `yaml:"mode" env:"DASHBOARD_LOG_MODE"`
	Level string `yaml:"level" env:"DASHBOARD_LOG_LEVEL"`
}

// StoreConfig selects the layout persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver" env:"DASHBOARD_STORE_DRIVER"`
	DSN    string `yaml:"dsn" env:"DASHBOARD_STORE_DSN"`
	// FeatureCacheTTL caches flag reads; zero disables caching.
	FeatureCacheTTL time.Duration `yaml:"feature_cache_ttl" env:"DASHBOARD_FEATURE_CACHE_TTL"`
}

// SupabaseConfig points at the PostgREST API for the supabase driver and the
// community and commerce sources.
type SupabaseConfig struct {
	URL string `yaml:"url" env:"SUPABASE_URL"`
	Key string `yaml:"key" env:"SUPABASE_SERVICE_ROLE_KEY"`
}

// RedisConfig enables cross-instance layout event fan-out when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	Channel  string `yaml:"channel" env:"REDIS_CHANNEL"`
}

type CatalogConfig struct {
	ManifestPath string `yaml:"manifest_path" env:"DASHBOARD_CATALOG_MANIFEST"`
}

// MetricsConfig serves Prometheus metrics on a separate listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"DASHBOARD_METRICS_ENABLED"`
	Addr    string `yaml:"addr" env:"DASHBOARD_METRICS_ADDR"`
	Path    string `yaml:"path" env:"DASHBOARD_METRICS_PATH"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":8080", BasePath: "/dashboard"},
		Log:     LogConfig{Mode: "development", Level: "info"},
		Store:   StoreConfig{Driver: DriverMemory},
		Redis:   RedisConfig{Channel: "dashboard.layout"},
		Metrics: MetricsConfig{Addr: ":9090", Path: "/metrics"},
	}
}

// Options controls Load.
type Options struct {
	// File is an optional YAML file.
	File string
	// EnvFiles are loaded with godotenv before decoding the environment.
	// Missing files are ignored.
	EnvFiles []string
}

// Load merges defaults, the YAML file, env files and the environment, then
// validates the result.
func Load(opts Options) (Config, error) {
	cfg := Default()
	if opts.File != "" {
		raw, err := os.ReadFile(opts.File)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", opts.File, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", opts.File, err)
		}
	}
	for _, file := range opts.EnvFiles {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks driver specific requirements.
func (c Config) Validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for the %s driver", c.Store.Driver)
		}
	case DriverSupabase:
		if c.Supabase.URL == "" || c.Supabase.Key == "" {
			return fmt.Errorf("config: supabase.url and supabase.key are required for the supabase driver")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	return nil
}
