// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"` // empty => in-process rate limiting
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RazorpayConfig struct {
	KeyID         string `yaml:"key_id"`
	KeySecret     string `yaml:"key_secret"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"`
}

type OrdersConfig struct {
	MaxAge     time.Duration `yaml:"max_age"`     // verification window for pending orders
	SpamWindow time.Duration `yaml:"spam_window"` // per-phone spam guard window
	SpamMax    int           `yaml:"spam_max"`    // orders per phone per window
}

type RateLimitConfig struct {
	PerMinute      int `yaml:"per_minute"`       // public payment-path endpoints, per IP
	AdminPerMinute int `yaml:"admin_per_minute"` // admin actions, per token+action
}

type AdminConfig struct {
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type ReconcilerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
	BatchLimit int           `yaml:"batch_limit"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Razorpay   RazorpayConfig   `yaml:"razorpay"`
	Orders     OrdersConfig     `yaml:"orders"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Admin      AdminConfig      `yaml:"admin"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Razorpay.BaseURL == "" {
		cfg.Razorpay.BaseURL = "https://api.razorpay.com"
	}
	if cfg.Orders.MaxAge <= 0 {
		cfg.Orders.MaxAge = 24 * time.Hour
	}
	if cfg.Orders.SpamWindow <= 0 {
		cfg.Orders.SpamWindow = 5 * time.Minute
	}
	if cfg.Orders.SpamMax <= 0 {
		cfg.Orders.SpamMax = 3
	}
	if cfg.RateLimit.PerMinute <= 0 {
		cfg.RateLimit.PerMinute = 10
	}
	if cfg.RateLimit.AdminPerMinute <= 0 {
		cfg.RateLimit.AdminPerMinute = 20
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.Reconciler.Interval <= 0 {
		cfg.Reconciler.Interval = time.Minute
	}
	if cfg.Reconciler.StaleAfter <= 0 {
		cfg.Reconciler.StaleAfter = 10 * time.Minute
	}
	if cfg.Reconciler.BatchLimit <= 0 {
		cfg.Reconciler.BatchLimit = 200
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "" {
		return nil, errors.New("razorpay.key_id and razorpay.key_secret are required")
	}
	if cfg.Razorpay.WebhookSecret == "" {
		return nil, errors.New("razorpay.webhook_secret is required")
	}
	if cfg.Admin.JWTSecret == "" {
		return nil, errors.New("admin.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
