package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate default config: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.PriceSource.Provider != "fmp" {
		t.Errorf("provider = %q, want fmp", cfg.PriceSource.Provider)
	}
	if cfg.Scheduler.Interval != time.Minute {
		t.Errorf("interval = %v, want 1m", cfg.Scheduler.Interval)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("access token TTL = %v, want 15m", cfg.Auth.AccessTokenTTL)
	}
}

func TestLoadConfig(t *testing.T) {
	content := `
server:
  address: ":9000"
auth:
  access_token_ttl: 5m
  allow_signup: true
pricesource:
  provider: static
scheduler:
  interval: 30s
  concurrency: 4
notifications:
  console: true
  rate_limit:
    max_per_minute: 10
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.Address != ":9000" {
		t.Errorf("address = %q, want :9000", cfg.Server.Address)
	}
	if cfg.Auth.AccessTokenTTL != 5*time.Minute {
		t.Errorf("access token TTL = %v, want 5m", cfg.Auth.AccessTokenTTL)
	}
	if !cfg.Auth.AllowSignup {
		t.Error("expected allow_signup to be true")
	}
	if cfg.PriceSource.Provider != "static" {
		t.Errorf("provider = %q, want static", cfg.PriceSource.Provider)
	}
	if cfg.Scheduler.Interval != 30*time.Second {
		t.Errorf("interval = %v, want 30s", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.Concurrency != 4 {
		t.Errorf("concurrency = %d, want 4", cfg.Scheduler.Concurrency)
	}
	if cfg.Notifications.RateLimit.MaxPerMinute != 10 {
		t.Errorf("max_per_minute = %d, want 10", cfg.Notifications.RateLimit.MaxPerMinute)
	}

	// Unset fields fall back to defaults.
	if cfg.Database.Path != "data/stockwatcher.db" {
		t.Errorf("database path = %q, want default", cfg.Database.Path)
	}
	if cfg.Metrics.Address != ":9090" {
		t.Errorf("metrics address = %q, want :9090", cfg.Metrics.Address)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidate_RejectsUnknownProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PriceSource.Provider = "yahoo"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown provider")
	}
}

func TestConfigValidate_RejectsShortInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scheduler.Interval = 100 * time.Millisecond

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for sub-second interval")
	}
}

func TestConfigValidate_RequiresTLSFiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.TLS.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when TLS is enabled without cert files")
	}
}

func TestConfigValidate_RequiresEmailHost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Notifications.Email.Enabled = true
	cfg.Notifications.Email.From = "alerts@example.com"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when email is enabled without a host")
	}
}

func TestConfigValidate_RequiresWebhookURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Notifications.Webhook.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when webhook is enabled without a URL")
	}
}
