package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig tunes the token-bucket limiter applied to the auth routes.
// Credential endpoints are the obvious brute-force target, so the defaults
// are deliberately tighter than a general API limiter would use.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int           // bucket size (burst)
	RefillTokens   int           // tokens added per interval
	RefillInterval time.Duration // interval between refills
	TTL            time.Duration // idle expiry of a bucket key
	Prefix         string        // redis key prefix
}

// LoadRateLimitConfig reads limiter settings from the environment, clamping
// values that would make the bucket degenerate.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        rlBool("RATE_LIMIT_ENABLED", true),
		Capacity:       rlInt("RATE_LIMIT_CAPACITY", 20),
		RefillTokens:   rlInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: rlDur("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
		TTL:            rlDur("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:         rlStr("RATE_LIMIT_PREFIX", "rl:auth"),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if min := 5 * cfg.RefillInterval; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}

func rlStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func rlBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return d
}

func rlInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func rlDur(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			return dur
		}
	}
	return d
}
