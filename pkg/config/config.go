// Package config loads runtime settings from the environment, after an
// optional local .env file has been merged in.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DevJWTSecret is used when JWT_SECRET is unset. Never rely on it in production.
const DevJWTSecret = "dev-insecure-secret-change"

// Upload backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Upload retention policies.
const (
	RetentionKeepAll    = "keep-all"
	RetentionKeepLatest = "keep-latest"
)

type Config struct {
	Addr          string        `env:"APP_ADDR" envDefault:":8081"`
	DatabaseDSN   string        `env:"DB_DSN"`
	AutoMigrate   bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	JWTSecret     string        `env:"JWT_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SecureCookies bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`

	SeedSecret        string `env:"SEED_SECRET"`
	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL" envDefault:"admin@systemfifty.com"`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD" envDefault:"admin123"`

	Upload Upload
	S3     S3

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"5"`
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty means the peer address is the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	GinMode   string `env:"GIN_MODE" envDefault:"release"`
}

// Upload configures the upload sink.
type Upload struct {
	Backend      string `env:"UPLOAD_BACKEND" envDefault:"local"`
	BaseDir      string `env:"UPLOAD_BASE" envDefault:"public/uploads"`
	MaxBytes     int64  `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`
	RequireImage bool   `env:"UPLOAD_REQUIRE_IMAGE" envDefault:"true"`
	Retention    string `env:"UPLOAD_RETENTION" envDefault:"keep-all"`
}

// S3 configures the S3-compatible upload backend.
type S3 struct {
	Bucket    string `env:"S3_BUCKET"`
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
}

// Load reads ./.env if present (without overriding variables that are
// already set) and parses the environment into a Config.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DevJWTSecret
	}
	cfg.Upload.Backend = strings.ToLower(strings.TrimSpace(cfg.Upload.Backend))
	cfg.Upload.Retention = strings.ToLower(strings.TrimSpace(cfg.Upload.Retention))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. DB_DSN is checked by callers that
// actually open the database.
func (c *Config) Validate() error {
	switch c.Upload.Backend {
	case BackendLocal:
	case BackendS3:
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required when UPLOAD_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown UPLOAD_BACKEND %q", c.Upload.Backend)
	}
	switch c.Upload.Retention {
	case RetentionKeepAll, RetentionKeepLatest:
	default:
		return fmt.Errorf("unknown UPLOAD_RETENTION %q", c.Upload.Retention)
	}
	if c.Upload.MaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}
