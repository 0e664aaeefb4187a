package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
server:
  port: ":9090"
storage:
  driver: memory
jwt:
  secret: yaml-secret
  ttl: 2h
tasks:
  enforce_project_ownership: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != ":9090" {
		t.Fatalf("expected port from yaml, got %q", cfg.Server.Port)
	}
	if cfg.Storage.Driver != StorageMemory {
		t.Fatalf("expected memory driver, got %q", cfg.Storage.Driver)
	}
	if cfg.JWT.TTL != 2*time.Hour {
		t.Fatalf("expected ttl 2h, got %v", cfg.JWT.TTL)
	}
	if cfg.Tasks.EnforceProjectOwnership {
		t.Fatal("expected project ownership check disabled")
	}
	if cfg.DB.MaxConns != 10 {
		t.Fatalf("expected default max conns, got %d", cfg.DB.MaxConns)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
jwt:
  secret: yaml-secret
db:
  host: yaml-host
`)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("DB_PORT", "6543")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.Secret != "env-secret" {
		t.Fatalf("expected env secret, got %q", cfg.JWT.Secret)
	}
	if cfg.DB.Host != "yaml-host" {
		t.Fatalf("expected yaml host kept, got %q", cfg.DB.Host)
	}
	if cfg.DB.Port != 6543 {
		t.Fatalf("expected env port, got %d", cfg.DB.Port)
	}
}

func TestLoadSecretsFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "storage:\n  driver: memory\n")
	writeFile(t, dir, "secrets.env", "JWT_SECRET=from-secrets\n")
	// godotenv sets process env; make sure the test cleans it up.
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.Secret != "from-secrets" {
		t.Fatalf("expected secret from secrets.env, got %q", cfg.JWT.Secret)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != StoragePostgres {
		t.Fatalf("expected default driver, got %q", cfg.Storage.Driver)
	}
	if !cfg.Tasks.EnforceProjectOwnership {
		t.Fatal("expected project ownership check on by default")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing jwt secret")
	}

	cfg.JWT.Secret = "s"
	cfg.Storage.Driver = "mongo"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
