package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter counts requests per key in fixed one minute windows. A
// burst straddling a window boundary can briefly pass twice the limit;
// acceptable for throttling logins and API abuse, and much cheaper
// than keeping per-request timestamps.
type RateLimiter struct {
	mu     sync.Mutex
	counts map[string]*windowCount
	limit  int
	window time.Duration
	now    func() time.Time
}

type windowCount struct {
	start time.Time
	n     int
}

// NewRateLimiter creates a limiter allowing limit requests per minute
// per key.
func NewRateLimiter(limit int) *RateLimiter {
	rl := &RateLimiter{
		counts: make(map[string]*windowCount),
		limit:  limit,
		window: time.Minute,
		now:    time.Now,
	}
	go rl.evictLoop()
	return rl
}

// Allow reports whether another request for key fits into the current
// window, counting it if so.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	wc := rl.counts[key]
	if wc == nil || now.Sub(wc.start) >= rl.window {
		rl.counts[key] = &windowCount{start: now, n: 1}
		return true
	}
	if wc.n >= rl.limit {
		return false
	}
	wc.n++
	return true
}

func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.evictStale()
	}
}

// evictStale drops keys whose window has fully elapsed, so idle
// clients do not pin memory forever.
func (rl *RateLimiter) evictStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for key, wc := range rl.counts {
		if !wc.start.After(cutoff) {
			delete(rl.counts, key)
		}
	}
}

// RateLimitByIP throttles by client IP.
func RateLimitByIP(limiter *RateLimiter) func(http.Handler) http.Handler {
	return rateLimitBy(limiter, clientIP)
}

// RateLimitByUser throttles by authenticated user, falling back to the
// client IP before authentication.
func RateLimitByUser(limiter *RateLimiter) func(http.Handler) http.Handler {
	return rateLimitBy(limiter, func(r *http.Request) string {
		if userID := GetUserID(r.Context()); userID != "" {
			return userID
		}
		return clientIP(r)
	})
}

func rateLimitBy(limiter *RateLimiter, key func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(key(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{
						"code":    "RATE_LIMITED",
						"message": "too many requests",
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP resolves the originating address, trusting proxy headers
// when present.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip, _, err := net.SplitHostPort(xff); err == nil {
			return ip
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
