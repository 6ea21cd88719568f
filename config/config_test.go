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

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	cfgFile := writeFile(t, dir, "config.yml", `
app:
  name: turf-app
  environment: production
api:
  base_url: https://api.openturf.example
  timeout: 5s
  retries: 2
logger:
  level: warn
  format: json
manager:
  max_retries: 4
  batch_size: 10
`)

	cfg, err := Load("turf-app", WithConfigFile(cfgFile))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Name != "turf-app" {
		t.Errorf("expected app name turf-app, got %q", cfg.App.Name)
	}
	if cfg.App.Environment != "production" {
		t.Errorf("expected production, got %q", cfg.App.Environment)
	}
	if cfg.API.BaseURL != "https://api.openturf.example" {
		t.Errorf("unexpected base URL %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.API.Timeout)
	}
	if cfg.API.Retries != 2 {
		t.Errorf("expected 2 retries, got %d", cfg.API.Retries)
	}
	if cfg.Logger.Level != "warn" {
		t.Errorf("expected warn level, got %q", cfg.Logger.Level)
	}
	if cfg.Manager.MaxRetries != 4 {
		t.Errorf("expected manager max retries 4, got %d", cfg.Manager.MaxRetries)
	}
	if cfg.Manager.BatchSize != 10 {
		t.Errorf("expected batch size 10, got %d", cfg.Manager.BatchSize)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgFile := writeFile(t, dir, "config.yml", `
app:
  name: turf-app
api:
  base_url: https://api.openturf.example
`)

	cfg, err := Load("turf-app", WithConfigFile(cfgFile))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Environment != "development" {
		t.Errorf("expected development default, got %q", cfg.App.Environment)
	}
	if !cfg.App.Debug {
		t.Error("expected debug on in development")
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("expected default 10s timeout, got %s", cfg.API.Timeout)
	}
	if cfg.API.Retries != 3 {
		t.Errorf("expected default 3 retries, got %d", cfg.API.Retries)
	}
	if cfg.Manager.MaxRetries != 3 {
		t.Errorf("expected default manager retries 3, got %d", cfg.Manager.MaxRetries)
	}
	if cfg.Monitor.ProbeInterval != 15*time.Second {
		t.Errorf("expected default probe interval 15s, got %s", cfg.Monitor.ProbeInterval)
	}
	if cfg.Telemetry.Endpoint != "localhost:4318" {
		t.Errorf("expected default OTLP endpoint, got %q", cfg.Telemetry.Endpoint)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := writeFile(t, dir, "config.yml", `
app:
  name: turf-app
api:
  base_url: https://api.openturf.example
  retries: 2
`)

	t.Setenv("API_RETRIES", "7")

	cfg, err := Load("turf-app", WithConfigFile(cfgFile))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Retries != 7 {
		t.Errorf("expected env override 7, got %d", cfg.API.Retries)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := writeFile(t, dir, "config.yml", `
app:
  name: turf-app
api:
  base_url: https://api.openturf.example
`)
	envFile := writeFile(t, dir, ".env", "API_TIMEOUT=3s\n")

	cfg, err := Load("turf-app", WithConfigFile(cfgFile), WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("expected 3s from .env, got %s", cfg.API.Timeout)
	}
}

func TestLoadRejectsMissingBaseURL(t *testing.T) {
	dir := t.TempDir()
	cfgFile := writeFile(t, dir, "config.yml", `
app:
  name: turf-app
`)

	if _, err := Load("turf-app", WithConfigFile(cfgFile)); err == nil {
		t.Fatal("expected validation error for missing API base URL")
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("API_BASE_URL")
	want := map[string]bool{
		"api_base_url": true,
		"api.base.url": true,
		"api.base_url": true,
	}
	for _, v := range got {
		if !want[v] {
			t.Errorf("unexpected variant %q", v)
		}
		delete(want, v)
	}
	for missing := range want {
		t.Errorf("missing variant %q", missing)
	}
}
