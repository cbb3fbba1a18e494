// Package main provides the stockwatcher server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Database      DatabaseConfig      `yaml:"database"`
	PriceSource   PriceSourceConfig   `yaml:"pricesource"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Verbose       bool                `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string    `yaml:"address"` // HTTP listen address (default: :8080)
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS settings for the HTTP server.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// AuthConfig contains authentication settings. The JWT secret is never
// read from the config file; it comes from STOCKWATCHER_JWT_SECRET.
type AuthConfig struct {
	AccessTokenTTL   time.Duration `yaml:"access_token_ttl"`   // default: 15m
	RefreshTokenTTL  time.Duration `yaml:"refresh_token_ttl"`  // default: 168h
	LockoutThreshold int           `yaml:"lockout_threshold"`  // default: 5
	LockoutDuration  time.Duration `yaml:"lockout_duration"`   // default: 30m
	RateLimitPerIP   int           `yaml:"rate_limit_per_ip"`  // default: 5/min on auth endpoints
	RateLimitPerUser int           `yaml:"rate_limit_per_user"` // default: 100/min
	AllowSignup      bool          `yaml:"allow_signup"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // default: data/stockwatcher.db
}

// PriceSourceConfig selects and configures the quote provider.
type PriceSourceConfig struct {
	// Provider is "fmp" or "static". The static provider serves fixed
	// prices and exists for local development without an API key.
	Provider          string        `yaml:"provider"`
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`             // default: 30s
	RequestsPerMinute int           `yaml:"requests_per_minute"` // 0 disables pacing
}

// SchedulerConfig contains evaluation loop settings.
type SchedulerConfig struct {
	Interval      time.Duration `yaml:"interval"`       // default: 1m
	Concurrency   int           `yaml:"concurrency"`    // default: 8
	StoreTimeout  time.Duration `yaml:"store_timeout"`  // default: 5s
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`  // default: 15s
	NotifyTimeout time.Duration `yaml:"notify_timeout"` // default: 10s
}

// NotificationsConfig configures outbound channels.
type NotificationsConfig struct {
	Console   bool                    `yaml:"console"`
	Email     EmailNotifierConfig     `yaml:"email"`
	Webhook   WebhookNotifierConfig   `yaml:"webhook"`
	RateLimit NotifierRateLimitConfig `yaml:"rate_limit"`
}

// EmailNotifierConfig contains SMTP delivery settings. The SMTP password
// comes from STOCKWATCHER_SMTP_PASSWORD when not set here.
type EmailNotifierConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// WebhookNotifierConfig contains webhook delivery settings.
type WebhookNotifierConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	AuthHeader string `yaml:"auth_header"`
}

// NotifierRateLimitConfig caps outbound notification volume.
type NotifierRateLimitConfig struct {
	MaxPerMinute int  `yaml:"max_per_minute"` // default: 30
	Disabled     bool `yaml:"disabled"`
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // default: :9090
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL == 0 {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.LockoutThreshold == 0 {
		c.Auth.LockoutThreshold = 5
	}
	if c.Auth.LockoutDuration == 0 {
		c.Auth.LockoutDuration = 30 * time.Minute
	}
	if c.Auth.RateLimitPerIP == 0 {
		c.Auth.RateLimitPerIP = 5
	}
	if c.Auth.RateLimitPerUser == 0 {
		c.Auth.RateLimitPerUser = 100
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/stockwatcher.db"
	}
	if c.PriceSource.Provider == "" {
		c.PriceSource.Provider = "fmp"
	}
	if c.PriceSource.Timeout == 0 {
		c.PriceSource.Timeout = 30 * time.Second
	}
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = time.Minute
	}
	if c.Scheduler.Concurrency == 0 {
		c.Scheduler.Concurrency = 8
	}
	if c.Scheduler.StoreTimeout == 0 {
		c.Scheduler.StoreTimeout = 5 * time.Second
	}
	if c.Scheduler.FetchTimeout == 0 {
		c.Scheduler.FetchTimeout = 15 * time.Second
	}
	if c.Scheduler.NotifyTimeout == 0 {
		c.Scheduler.NotifyTimeout = 10 * time.Second
	}
	if c.Notifications.RateLimit.MaxPerMinute == 0 {
		c.Notifications.RateLimit.MaxPerMinute = 30
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return fmt.Errorf("server.tls.cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.key_file is required when TLS is enabled")
		}
	}
	switch c.PriceSource.Provider {
	case "fmp", "static":
	default:
		return fmt.Errorf("pricesource.provider must be fmp or static, got %q", c.PriceSource.Provider)
	}
	if c.Scheduler.Interval < time.Second {
		return fmt.Errorf("scheduler.interval must be at least 1s")
	}
	if c.Scheduler.Concurrency < 1 {
		return fmt.Errorf("scheduler.concurrency must be positive")
	}
	if c.Notifications.Email.Enabled {
		if c.Notifications.Email.Host == "" {
			return fmt.Errorf("notifications.email.host is required when email is enabled")
		}
		if c.Notifications.Email.From == "" {
			return fmt.Errorf("notifications.email.from is required when email is enabled")
		}
	}
	if c.Notifications.Webhook.Enabled && c.Notifications.Webhook.URL == "" {
		return fmt.Errorf("notifications.webhook.url is required when webhook is enabled")
	}
	return nil
}
