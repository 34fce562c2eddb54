// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 4850 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Sync.PageSize != 500 || cfg.Sync.CleanupPageSize != 5000 {
		t.Errorf("sync page sizes = %d, %d", cfg.Sync.PageSize, cfg.Sync.CleanupPageSize)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log defaults = %q %q", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Prober.Concurrency != 10 {
		t.Errorf("prober concurrency = %d", cfg.Prober.Concurrency)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9000
sync:
  interval: 30m
database:
  path: /tmp/test.duckdb
instances:
  - id: main
    name: Main
    base_url: http://stash:9999
    api_key: secret
    enabled: true
    priority: 5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want file override", cfg.Server.Port)
	}
	if cfg.Sync.Interval != 30*time.Minute {
		t.Errorf("interval = %v", cfg.Sync.Interval)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q", cfg.Server.Host)
	}
	if len(cfg.Instances) != 1 || cfg.Instances[0].ID != "main" || cfg.Instances[0].APIKey != "secret" {
		t.Errorf("instances = %+v", cfg.Instances)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("CURATOR_SERVER_PORT", "9001")
	t.Setenv("CURATOR_SERVER_CORS_ORIGINS", "http://a.example, http://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want env override", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.example" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("CURATOR_LOG_LEVEL", "shouting")

	if _, err := Load(); err == nil {
		t.Error("invalid log level accepted")
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct{ in, want string }{
		{"CURATOR_SERVER_PORT", "server.port"},
		{"CURATOR_SYNC_PAGE_SIZE", "sync.page_size"},
		{"CURATOR_LOG_LEVEL", "log.level"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
