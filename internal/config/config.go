// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The struct is built once in main and handed to
// constructors; request handling code never reads the environment.
type Config struct {
	Env  string `env:"APP_ENV"  envDefault:"dev"`  // application environment (dev/test/prod)
	Port string `env:"APP_PORT" envDefault:"8080"` // HTTP port to listen on

	DBUser string `env:"DB_USER,required"` // database username
	DBPass string `env:"DB_PASS"`          // database password (empty allowed)
	DBHost string `env:"DB_HOST,required"` // database host address
	DBPort string `env:"DB_PORT,required"` // database port number
	DBName string `env:"DB_NAME,required"` // database name

	JWTSecret  string        `env:"JWT_SECRET,required"`           // secret used to sign session tokens
	TokenTTL   time.Duration `env:"TOKEN_TTL"   envDefault:"168h"` // session token lifetime
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`   // bcrypt cost for password hashing

	GoogleClientID            string        `env:"GOOGLE_CLIENT_ID,required"`
	GoogleCertsURL            string        `env:"GOOGLE_CERTS_URL"        envDefault:"https://www.googleapis.com/oauth2/v3/certs"`
	AllowUnverifiedAssertions bool          `env:"GOOGLE_ALLOW_UNVERIFIED" envDefault:"true"`
	VerifierTimeout           time.Duration `env:"VERIFIER_TIMEOUT"        envDefault:"5s"`

	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"` // bound on each database round-trip

	AMQPURL string `env:"RABBITMQ_URL"` // account events are disabled when empty

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// minSecretLen is the shortest JWT secret accepted outside dev.
const minSecretLen = 16

// Load reads an optional .env file, then parses the environment into a
// Config and validates it.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Redis.normalize()
	cfg.RateLimit.normalize()
	cfg.Cache.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that would make tokens or password
// hashes unsafe.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.Env != "dev" && len(c.JWTSecret) < minSecretLen {
		return fmt.Errorf("config: JWT_SECRET must be at least %d bytes outside dev", minSecretLen)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("config: BCRYPT_COST %d out of range [4,31]", c.BcryptCost)
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: TOKEN_TTL must be positive")
	}
	if c.GoogleClientID == "" {
		return errors.New("config: GOOGLE_CLIENT_ID is required")
	}
	return c.RateLimit.validate()
}
