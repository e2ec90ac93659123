package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CS_CONFIG_PATH", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("addr: want=:8080 got=%q", cfg.HTTP.Addr)
	}
	if cfg.Sessions.IdleTimeout.Duration != 30*time.Minute {
		t.Fatalf("session idle: want=30m got=%s", cfg.Sessions.IdleTimeout.Duration)
	}
	if cfg.Rules.Location != "" || cfg.Rules.Watch {
		t.Fatalf("rules: want zero got=%+v", cfg.Rules)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cs.json")
	body := `{
		"http": {"addr": ":9090", "shutdown_timeout": "3s", "read_header_timeout": 2000000000},
		"rules": {"location": "/srv/rules/ng.yaml", "watch": true},
		"rate_limit": {"rps": 2, "burst": 4}
	}`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CS_CONFIG_PATH", p)
	t.Setenv("CS_RATE_LIMIT_BURST", "9")
	t.Setenv("CS_RULES_PATH", "redis://cache:6379/0?key=rules")
	t.Setenv("CS_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" || cfg.HTTP.ShutdownTimeout.Duration != 3*time.Second || cfg.HTTP.ReadHeaderTimeout.Duration != 2*time.Second {
		t.Fatalf("http: %+v", cfg.HTTP)
	}
	if cfg.HTTP.IdleTimeout.Duration != 2*time.Minute {
		t.Fatalf("unset keys should keep defaults: idle=%s", cfg.HTTP.IdleTimeout.Duration)
	}
	if cfg.RateLimit.RPS != 2 || cfg.RateLimit.Burst != 9 {
		t.Fatalf("rate limit: %+v", cfg.RateLimit)
	}
	if cfg.Rules.Location != "redis://cache:6379/0?key=rules" || !cfg.Rules.Watch {
		t.Fatalf("rules: %+v", cfg.Rules)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors: %v", cfg.HTTP.CORSOrigins)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cs.json")
	if err := os.WriteFile(p, []byte(`{"rate_limit":{"rps":-1}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CS_CONFIG_PATH", p)
	if _, err := Load(); err == nil {
		t.Fatalf("negative rps should fail")
	}

	if err := os.WriteFile(p, []byte(`{"http":{"idle_timeout":"soon"}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(); err == nil {
		t.Fatalf("bad duration should fail")
	}
}
