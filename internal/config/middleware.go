package config

import (
	"fmt"
	"strings"
	"time"
)

// RateLimitKeyStrategies lists the accepted RATE_LIMIT_KEY_STRATEGY values.
// The limiter runs before authentication, so buckets can only be keyed by
// client address and route.
var RateLimitKeyStrategies = []string{"ip", "route", "ip_route"}

// RateLimitConfig controls the token bucket applied to the auth endpoints.
type RateLimitConfig struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED"         envDefault:"true"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY"        envDefault:"60"`
	RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS"   envDefault:"1"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`
	TTL            time.Duration `env:"RATE_LIMIT_TTL"             envDefault:"10m"`
	KeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY"    envDefault:"ip_route"`
	Prefix         string        `env:"RATE_LIMIT_PREFIX"          envDefault:"rl"`
	Debug          bool          `env:"RATE_LIMIT_DEBUG"`
}

func (r *RateLimitConfig) normalize() {
	r.KeyStrategy = strings.ToLower(strings.TrimSpace(r.KeyStrategy))
	if r.KeyStrategy == "" {
		r.KeyStrategy = "ip_route"
	}
	if r.Capacity < 1 {
		r.Capacity = 1
	}
	if r.RefillTokens < 1 {
		r.RefillTokens = 1
	}
	if r.RefillInterval <= 0 {
		r.RefillInterval = time.Second
	}
	// Buckets must outlive a few refill intervals or they reset to full.
	if minTTL := 5 * r.RefillInterval; r.TTL < minTTL {
		r.TTL = minTTL
	}
}

func (r RateLimitConfig) validate() error {
	if r.KeyStrategy == "" {
		return nil
	}
	for _, k := range RateLimitKeyStrategies {
		if r.KeyStrategy == k {
			return nil
		}
	}
	return fmt.Errorf("config: RATE_LIMIT_KEY_STRATEGY %q must be one of %s",
		r.KeyStrategy, strings.Join(RateLimitKeyStrategies, ", "))
}

// CacheConfig defines settings for the catalog response cache.  When Enabled
// is false or no Redis client is configured, caching is skipped.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED"        envDefault:"true"`
	MethodList   []string      `env:"CACHE_METHODS"        envDefault:"GET" envSeparator:","`
	TTL          time.Duration `env:"CACHE_TTL"            envDefault:"30s"`
	KeyStrategy  string        `env:"CACHE_KEY_STRATEGY"   envDefault:"route_query"`
	Prefix       string        `env:"CACHE_PREFIX"         envDefault:"cache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" envDefault:"1048576"`

	Methods map[string]bool // built from MethodList
}

func (c *CacheConfig) normalize() {
	c.Methods = make(map[string]bool, len(c.MethodList))
	for _, m := range c.MethodList {
		m = strings.TrimSpace(strings.ToUpper(m))
		if m != "" {
			c.Methods[m] = true
		}
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
}
