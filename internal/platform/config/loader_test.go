package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoaderDefaults(t *testing.T) {
	cfg, err := NewLoader("").WithDotEnv(false).Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("unexpected default port: %d", cfg.Server.Port)
	}
	if cfg.Extraction.Colors != 6 {
		t.Fatalf("unexpected default extraction colors: %d", cfg.Extraction.Colors)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Fatalf("unexpected default cache ttl: %v", cfg.Cache.TTL)
	}
	if cfg.Server.AuthEnabled {
		t.Fatalf("expected auth disabled until a secret is configured")
	}
}

func TestLoaderFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: 9090
  auth_enabled: false
cache:
  driver: redis
  ttl: 10m
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("SOB_CACHE_CAPACITY", "42")
	t.Setenv("SOB_EXTRACTION_COLORS", "8")

	cfg, err := NewLoader(path).WithDotEnv(false).Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("file override not applied, port = %d", cfg.Server.Port)
	}
	if cfg.Cache.Driver != "redis" || cfg.Cache.TTL != 10*time.Minute {
		t.Fatalf("unexpected cache config: %+v", cfg.Cache)
	}
	if cfg.Cache.Capacity != 42 {
		t.Fatalf("env override not applied, capacity = %d", cfg.Cache.Capacity)
	}
	if cfg.Extraction.Colors != 8 {
		t.Fatalf("env override not applied, colors = %d", cfg.Extraction.Colors)
	}
}

func TestLoaderValidation(t *testing.T) {
	t.Setenv("SOB_SERVER_PORT", "0")
	if _, err := NewLoader("").WithDotEnv(false).Load(); err == nil {
		t.Fatalf("expected validation error for port 0")
	}

	t.Setenv("SOB_SERVER_PORT", "8080")
	t.Setenv("SOB_AUTH_ENABLED", "true")
	t.Setenv("SOB_AUTH_SECRET", "")
	if _, err := NewLoader("").WithDotEnv(false).Load(); err == nil {
		t.Fatalf("expected validation error for missing auth secret")
	}
}
