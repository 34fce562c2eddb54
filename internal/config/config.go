// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

// Package config loads and validates Curator configuration from defaults,
// an optional YAML file, and CURATOR_-prefixed environment variables, in
// that order of precedence (koanf provider layering).
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Sync     SyncConfig     `koanf:"sync"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Prober   ProberConfig   `koanf:"prober"`
	Log      LogConfig      `koanf:"log"`

	// Instances optionally seeds upstream instance rows into the store at
	// startup. The store remains the source of truth afterwards.
	Instances []InstanceSeed `koanf:"instances"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	// AdminRateLimit is requests/minute for the admin route group.
	AdminRateLimit int `koanf:"admin_rate_limit"`
}

// DatabaseConfig configures the DuckDB mirror store.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	// Threads is the DuckDB thread count; 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// SyncConfig configures the sync engine and scheduler.
type SyncConfig struct {
	Interval     time.Duration `koanf:"interval" validate:"min=1m"`
	StartupDelay time.Duration `koanf:"startup_delay"`
	// PageSize is the entity fetch page size; CleanupPageSize the id-only
	// scan page size used by the deleted-reconciliation pass.
	PageSize        int `koanf:"page_size" validate:"min=1,max=5000"`
	CleanupPageSize int `koanf:"cleanup_page_size" validate:"min=1"`
	RetryAttempts   int `koanf:"retry_attempts" validate:"min=1,max=10"`
	RetryDelay      time.Duration `koanf:"retry_delay"`
}

// UpstreamConfig configures the GraphQL client shared by all instances.
type UpstreamConfig struct {
	RequestTimeout time.Duration `koanf:"request_timeout"`
	// RateLimit is requests/second allowed against one upstream instance.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
	// BreakerFailureThreshold consecutive failures open the circuit.
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerOpenTimeout      time.Duration `koanf:"breaker_open_timeout"`
}

// ProberConfig configures the clip preview prober.
type ProberConfig struct {
	Concurrency    int           `koanf:"concurrency" validate:"min=1,max=64"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// InstanceSeed is one upstream instance bootstrapped from the config file.
type InstanceSeed struct {
	ID       string `koanf:"id" validate:"required"`
	Name     string `koanf:"name"`
	BaseURL  string `koanf:"base_url" validate:"required,url"`
	APIKey   string `koanf:"api_key"`
	Enabled  bool   `koanf:"enabled"`
	Priority int    `koanf:"priority"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            4850,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AdminRateLimit:  60,
		},
		Database: DatabaseConfig{
			Path:      "/data/curator.duckdb",
			MaxMemory: "2GB",
			Threads:   0,
		},
		Sync: SyncConfig{
			Interval:        6 * time.Hour,
			StartupDelay:    15 * time.Second,
			PageSize:        500,
			CleanupPageSize: 5000,
			RetryAttempts:   3,
			RetryDelay:      2 * time.Second,
		},
		Upstream: UpstreamConfig{
			RequestTimeout:          60 * time.Second,
			RateLimit:               10,
			RateBurst:               20,
			BreakerFailureThreshold: 5,
			BreakerOpenTimeout:      30 * time.Second,
		},
		Prober: ProberConfig{
			Concurrency:    10,
			RequestTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration using struct tags.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
