// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Shared secret for sealing private keys at rest. Startup fails
	// without it; a sealer with a guessed key would render every
	// stored signing key unreadable.
	SealerSecret string `env:"SEALER_SECRET,required,notEmpty"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Signing key lifecycle
	KeyTTL            time.Duration `env:"KEY_TTL" envDefault:"24h"`
	KeyRotateInterval time.Duration `env:"KEY_ROTATE_INTERVAL" envDefault:"1h"`

	// Access tokens minted on successful authentication
	TokenIssuer string        `env:"TOKEN_ISSUER" envDefault:"keymint"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"15m"`

	// Admission control for /auth, fixed window per client IP
	AuthRateLimit          int           `env:"AUTH_RATE_LIMIT" envDefault:"10"`
	AuthRateWindow         time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1s"`
	RateLimitSweepInterval time.Duration `env:"RATE_LIMIT_SWEEP_INTERVAL" envDefault:"1m"`
	RateLimitStaleAfter    time.Duration `env:"RATE_LIMIT_STALE_AFTER" envDefault:"5m"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
