package config

import "time"

// RateLimitConfig drives the Redis token bucket in front of the board's
// write endpoints.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string // "ip", "subject" or "subject_role"
	Prefix         string
}

// LoadRateLimitConfig reads RATE_LIMIT_* and clamps nonsense values.  A busy
// front desk issues a few writes per patient, so the defaults are generous.
func LoadRateLimitConfig() RateLimitConfig {
	rl := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 5*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "subject_role"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "board:rl"),
	}
	rl.Capacity = max(rl.Capacity, 1)
	rl.RefillTokens = max(rl.RefillTokens, 1)
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	rl.TTL = max(rl.TTL, 5*rl.RefillInterval)
	return rl
}
