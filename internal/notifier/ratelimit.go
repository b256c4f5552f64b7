package notifier

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds outbound rate limiter configuration.
type RateLimitConfig struct {
	MaxPerMinute int  // Maximum notifications per minute (default: 10)
	Burst        int  // Burst size (default: MaxPerMinute)
	Enabled      bool // Whether rate limiting is enabled
}

// DefaultRateLimitConfig returns default rate limit settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxPerMinute: 10,
		Burst:        10,
		Enabled:      true,
	}
}

// RateLimiter caps outbound notification volume so a noisy rule cannot
// flood the SMTP relay.
type RateLimiter struct {
	limiter *rate.Limiter
	dropped atomic.Int64
	enabled bool
}

// NewRateLimiter creates a rate limiter with the given configuration.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.MaxPerMinute <= 0 {
		config.MaxPerMinute = 10
	}
	if config.Burst <= 0 {
		config.Burst = config.MaxPerMinute
	}

	perMinute := rate.Every(time.Minute / time.Duration(config.MaxPerMinute))
	return &RateLimiter{
		limiter: rate.NewLimiter(perMinute, config.Burst),
		enabled: config.Enabled,
	}
}

// Allow reports whether a notification may be sent now.
func (r *RateLimiter) Allow() bool {
	if !r.enabled {
		return true
	}
	if !r.limiter.Allow() {
		r.dropped.Add(1)
		return false
	}
	return true
}

// Dropped returns the number of notifications dropped so far.
func (r *RateLimiter) Dropped() int64 {
	return r.dropped.Load()
}
