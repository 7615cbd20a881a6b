package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type staticLimiter struct {
	allow   bool
	clients []string
}

func (s *staticLimiter) Allow(client string) bool {
	s.clients = append(s.clients, client)
	return s.allow
}

func TestRateLimitMiddlewareBlocksWhenLimiterDenies(t *testing.T) {
	middleware := rateLimitMiddleware(&staticLimiter{allow: false}, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler should not execute when rate limited")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on throttled response")
	}
}

func TestRateLimitMiddlewarePassesWhenLimiterAllows(t *testing.T) {
	var called bool
	limiter := &staticLimiter{allow: true}
	middleware := rateLimitMiddleware(limiter, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/solve", nil)
	req.RemoteAddr = "203.0.113.7:52114"
	middleware.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to execute when limiter allows")
	}
	if len(limiter.clients) != 1 || limiter.clients[0] != "203.0.113.7" {
		t.Fatalf("expected the client host to key the limiter, got %v", limiter.clients)
	}
}

func TestNewTokenBucketLimiterUsesDefaults(t *testing.T) {
	limiter := newTokenBucketLimiter(0, 0)
	if limiter == nil {
		t.Fatalf("expected limiter instance")
	}
	if !limiter.Allow("client") {
		t.Fatalf("expected first request to be allowed")
	}
}

func TestTokenBucketLimiterExhaustsBurst(t *testing.T) {
	limiter := newTokenBucketLimiter(0.001, 2)
	if !limiter.Allow("a") || !limiter.Allow("a") {
		t.Fatalf("expected burst of two requests to be allowed")
	}
	if limiter.Allow("a") {
		t.Fatalf("expected third request to be throttled")
	}
	if !limiter.Allow("b") {
		t.Fatalf("another client must keep its own burst")
	}
}

func TestTokenBucketLimiterSweepsIdleClients(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	limiter := newTokenBucketLimiter(1, 1)
	limiter.now = func() time.Time { return now }

	limiter.Allow("idle")
	now = base.Add(clientIdleTTL + time.Second)
	limiter.Allow("active")

	limiter.mu.Lock()
	limiter.sweep(now)
	limiter.mu.Unlock()

	if got := limiter.tracked(); got != 1 {
		t.Fatalf("expected only the active client to remain, got %d", got)
	}
	if !limiter.Allow("idle") {
		t.Fatalf("a swept client starts with a fresh bucket")
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{remote: "192.0.2.1:1234", want: "192.0.2.1"},
		{remote: "[2001:db8::1]:443", want: "2001:db8::1"},
		{remote: "unix", want: "unix"},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remote
		if got := clientKey(req); got != tc.want {
			t.Fatalf("clientKey(%q) = %q, want %q", tc.remote, got, tc.want)
		}
	}
}
