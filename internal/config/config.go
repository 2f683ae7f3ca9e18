// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Supported password hash algorithms.
const (
	HashBcrypt   = "bcrypt"
	HashArgon2id = "argon2id"
)

// bcrypt accepts costs in this range.
const (
	minBcryptCost = 4
	maxBcryptCost = 31
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL    string `env:"DATABASE_URL,required"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	// Session store (Redis)
	RedisURL         string `env:"REDIS_URL,required"`
	RedisPoolSize    int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	SessionKeyPrefix string `env:"SESSION_KEY_PREFIX" envDefault:"session:"`

	// Access tokens
	SecretKey string        `env:"SECRET_KEY,required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// Password hashing
	PasswordHashAlgorithm string `env:"PASSWORD_HASH_ALGORITHM" envDefault:"bcrypt"`
	BcryptWorkFactor      int    `env:"BCRYPT_WORK_FACTOR" envDefault:"12"`
	Argon2Time            uint32 `env:"ARGON2_TIME" envDefault:"3"`
	Argon2MemoryKB        uint32 `env:"ARGON2_MEMORY_KB" envDefault:"65536"`
	Argon2Threads         uint8  `env:"ARGON2_THREADS" envDefault:"4"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks values that env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.PasswordHashAlgorithm {
	case HashBcrypt:
		if c.BcryptWorkFactor < minBcryptCost || c.BcryptWorkFactor > maxBcryptCost {
			errs = append(errs, fmt.Errorf("BCRYPT_WORK_FACTOR must be between %d and %d, got %d",
				minBcryptCost, maxBcryptCost, c.BcryptWorkFactor))
		}
	case HashArgon2id:
		if c.Argon2Time == 0 || c.Argon2MemoryKB == 0 || c.Argon2Threads == 0 {
			errs = append(errs, errors.New("ARGON2_TIME, ARGON2_MEMORY_KB and ARGON2_THREADS must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PASSWORD_HASH_ALGORITHM %q", c.PasswordHashAlgorithm))
	}

	if c.RedisPoolSize < 1 {
		errs = append(errs, fmt.Errorf("REDIS_POOL_SIZE must be at least 1, got %d", c.RedisPoolSize))
	}
	if strings.TrimSpace(c.SessionKeyPrefix) == "" {
		errs = append(errs, errors.New("SESSION_KEY_PREFIX must not be blank"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		errs = append(errs, errors.New("SECRET_KEY must not be blank"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
