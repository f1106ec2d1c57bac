package config

// Redis backs the auth rate limiter and the catalog response cache.  If the
// server cannot be reached at startup NewRedisClient returns nil and callers
// degrade gracefully (in-process limiter, no cache).

import (
	"context"
	"crypto/tls"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes how to reach Redis.  REDIS_HOST and REDIS_PORT take
// precedence over REDIS_ADDR when both are set.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	TLS      string `env:"REDIS_TLS"`
}

func (r *RedisConfig) normalize() {
	if r.Host != "" && r.Port != "" {
		r.Addr = r.Host + ":" + r.Port
	}
	if r.Addr == "" {
		r.Addr = "localhost:6379"
	}
}

// TLSEnabled reports whether REDIS_TLS is "true" or "1".
func (r RedisConfig) TLSEnabled() bool {
	return strings.EqualFold(r.TLS, "true") || r.TLS == "1"
}

// NewRedisClient instantiates a Redis client and pings it with a short
// timeout.  The returned client is nil when the ping fails.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLSEnabled() {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, continuing without it", "addr", cfg.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}
