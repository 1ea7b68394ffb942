package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfig_Layers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "formflow.yaml")
	content := `
backend:
  url: http://file.example
  timeout: 5s
  headers:
    X-Tenant: acme
log:
  level: debug
output: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FORMFLOW_BACKEND_URL", "http://env.example")
	t.Setenv("FORMFLOW_VALIDATE", "false")

	cfg, err := loadConfig(path, true)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	want := Config{
		Backend: BackendConfig{
			URL:     "http://env.example",
			Timeout: 5 * time.Second,
			Headers: map[string]string{"X-Tenant": "acme"},
		},
		Log:      LogConfig{Level: "debug", Format: "text"},
		Output:   "json",
		Validate: false,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg, err := loadConfig(missing, false)
	if err != nil {
		t.Fatalf("implicit missing file should fall back to defaults: %v", err)
	}
	if cfg.Output != "yaml" || !cfg.Validate || cfg.Backend.Timeout != 30*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	if _, err := loadConfig(missing, true); err == nil {
		t.Fatalf("expected error for an explicit missing file")
	}
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"FORMFLOW_BACKEND_URL": "backend.url",
		"FORMFLOW_LOG_LEVEL":   "log.level",
		"FORMFLOW_OUTPUT":      "output",
	}
	for in, want := range cases {
		if got := envKey(in); got != want {
			t.Fatalf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger(LogConfig{Level: "info", Format: "json"}, os.Stderr); err != nil {
		t.Fatalf("json logger: %v", err)
	}
	if _, err := newLogger(LogConfig{Level: "loud"}, os.Stderr); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := newLogger(LogConfig{Level: "info", Format: "xml"}, os.Stderr); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
