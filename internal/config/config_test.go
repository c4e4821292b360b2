package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
server:
  host: "0.0.0.0"
  port: 8080
tailscale:
  enabled: false
store:
  path: "liveset.db"
catalog:
  base_url: "http://localhost:9000"
sync:
  heal_interval_seconds: 45
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadValid verifies that a well-formed YAML config loads with all fields populated.
func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Store.Path != "liveset.db" {
		t.Errorf("store.path = %q, want %q", cfg.Store.Path, "liveset.db")
	}
	if cfg.Catalog.BaseURL != "http://localhost:9000" {
		t.Errorf("catalog.base_url = %q", cfg.Catalog.BaseURL)
	}
	if cfg.Sync.HealIntervalSeconds != 45 {
		t.Errorf("sync.heal_interval_seconds = %d, want 45", cfg.Sync.HealIntervalSeconds)
	}
}

// TestEnvOverride verifies that LIVESET_ env vars take precedence over YAML values.
// This ensures deployments can override config via environment.
func TestEnvOverride(t *testing.T) {
	t.Setenv("LIVESET_SERVER_PORT", "9999")
	t.Setenv("LIVESET_STORE_PATH", "/data/liveset.db")
	t.Setenv("LIVESET_SYNC_HEAL_INTERVAL", "10")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Store.Path != "/data/liveset.db" {
		t.Errorf("store.path = %q, want override", cfg.Store.Path)
	}
	if cfg.Sync.HealIntervalSeconds != 10 {
		t.Errorf("sync.heal_interval_seconds = %d, want 10", cfg.Sync.HealIntervalSeconds)
	}
	// Unchanged fields should keep YAML values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
}

// TestValidationMissingStorePath verifies that missing required fields produce a clear error.
func TestValidationMissingStorePath(t *testing.T) {
	yaml := `
server:
  host: "0.0.0.0"
  port: 8080
`
	if _, err := Load(writeTemp(t, yaml)); err == nil {
		t.Fatal("expected validation error for missing store path")
	}
}

// TestValidationTailscaleHostname verifies tailnet mode requires a hostname.
func TestValidationTailscaleHostname(t *testing.T) {
	yaml := `
tailscale:
  enabled: true
store:
  path: "liveset.db"
`
	if _, err := Load(writeTemp(t, yaml)); err == nil {
		t.Fatal("expected validation error for missing tailscale hostname")
	}
}

// TestLoadMissingFile verifies a useful error when the file is absent.
func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
