package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvConfigPath, "PORT", "ACCESS_PIN", "CORS_ORIGINS", "LOG_LEVEL",
		"SHOPEE_AFFILIATE_APP_ID", "ADAPTER_TIMEOUT_SECONDS", "MAX_IMAGES", "DATA_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Mining.AdapterTimeout != 15*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Generation.PollInterval != 5*time.Second || cfg.Generation.PollBudget != 3*time.Minute {
		t.Errorf("generation = %+v", cfg.Generation)
	}
	if !filepath.IsAbs(cfg.DataDir) {
		t.Errorf("DataDir = %q, want absolute", cfg.DataDir)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "videominer.yaml")
	yamlDoc := `
server:
  port: "9000"
  access_pin: "1234"
mining:
  adapter_timeout: 10s
affiliate:
  app_id: yaml-app
redis:
  ttl: 500ms
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "9100")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9100" {
		t.Errorf("Port = %q, environment should win", cfg.Server.Port)
	}
	if cfg.Server.AccessPin != "1234" || cfg.Affiliate.AppID != "yaml-app" {
		t.Errorf("file values lost: %+v", cfg)
	}
	if cfg.Mining.AdapterTimeout != 10*time.Second || cfg.Redis.TTL != 500*time.Millisecond {
		t.Errorf("durations = %s, %s", cfg.Mining.AdapterTimeout, cfg.Redis.TTL)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Shopee.BaseURL != "https://shopee.vn" {
		t.Errorf("default overwritten: %q", cfg.Shopee.BaseURL)
	}
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "c.yaml")
	os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644)
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() accepted a missing file")
	}

	t.Setenv("ADAPTER_TIMEOUT_SECONDS", "soon")
	if _, err := Load(""); err == nil {
		t.Error("Load() accepted a non-numeric timeout")
	}
}
