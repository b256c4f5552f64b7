package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(limit int) (*RateLimiter, *time.Time) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	rl := &RateLimiter{
		counts: make(map[string]*windowCount),
		limit:  limit,
		window: time.Minute,
		now:    func() time.Time { return now },
	}
	return rl, &now
}

func TestRateLimiterAllow(t *testing.T) {
	rl, _ := newTestLimiter(3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d denied under limit", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("request over limit allowed")
	}
	// Other keys are counted independently
	if !rl.Allow("5.6.7.8") {
		t.Error("unrelated key denied")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl, now := newTestLimiter(1)

	if !rl.Allow("k") {
		t.Fatal("first request denied")
	}
	if rl.Allow("k") {
		t.Fatal("second request in window allowed")
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("k") {
		t.Error("request in fresh window denied")
	}
}

func TestRateLimiterEvictsStale(t *testing.T) {
	rl, now := newTestLimiter(5)
	rl.Allow("old")

	*now = now.Add(2 * time.Minute)
	rl.Allow("fresh")
	rl.evictStale()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.counts["old"]; ok {
		t.Error("stale key survived eviction")
	}
	if _, ok := rl.counts["fresh"]; !ok {
		t.Error("fresh key evicted")
	}
}

func TestRateLimitByIPResponds429(t *testing.T) {
	rl, _ := newTestLimiter(1)
	handler := RateLimitByIP(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/login", nil)
	req.RemoteAddr = "1.2.3.4:5678"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", w.Code)
	}
}
