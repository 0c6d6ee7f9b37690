package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the service configuration loaded from environment variables.
type Config struct {
	Addr     string `env:"NEXADMIN_ADDR" envDefault:":8080"`
	Env      string `env:"NEXADMIN_ENV" envDefault:"development"`
	LogLevel string `env:"NEXADMIN_LOG_LEVEL" envDefault:"info"`

	// Persistence. With no Postgres DSN the service runs on in-memory
	// stores, which is what the test suite and local development use.
	PostgresDSN string `env:"NEXADMIN_PG_DSN"`
	RedisURL    string `env:"NEXADMIN_REDIS_URL"`

	// Session lifetime policy.
	SessionTTL  time.Duration `env:"NEXADMIN_SESSION_TTL" envDefault:"24h"`
	IdleTimeout time.Duration `env:"NEXADMIN_IDLE_TIMEOUT" envDefault:"30m"`

	// Secret used to sign ledger transactions.
	LedgerSecret string `env:"NEXADMIN_LEDGER_SECRET"`

	// Bootstrap super-admin, provisioned on first start when set.
	BootstrapEmail    string `env:"NEXADMIN_BOOTSTRAP_EMAIL"`
	BootstrapPassword string `env:"NEXADMIN_BOOTSTRAP_PASSWORD"`

	RateBurst    int   `env:"NEXADMIN_RATE_BURST" envDefault:"40"`
	RatePerSec   int   `env:"NEXADMIN_RATE_PER_SEC" envDefault:"20"`
	MaxBodyBytes int64 `env:"NEXADMIN_MAX_BODY_BYTES" envDefault:"1048576"`
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// UseRedisSessions reports whether sessions should live in Redis.
func (c Config) UseRedisSessions() bool {
	return c.RedisURL != ""
}

// Load parses environment variables and validates production requirements.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.SessionTTL <= 0 || cfg.IdleTimeout <= 0 {
		return nil, fmt.Errorf("session TTLs must be positive")
	}
	if cfg.IdleTimeout > cfg.SessionTTL {
		return nil, fmt.Errorf("idle timeout %s exceeds session TTL %s", cfg.IdleTimeout, cfg.SessionTTL)
	}
	if cfg.IsProduction() && cfg.LedgerSecret == "" {
		return nil, fmt.Errorf("NEXADMIN_LEDGER_SECRET is required in production")
	}
	return cfg, nil
}
