package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("192.0.2.10") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("192.0.2.10") {
		t.Error("request over the limit should be denied")
	}

	// A different key has its own window
	if !rl.Allow("198.51.100.7") {
		t.Error("other keys should not be affected")
	}
}

func TestRateLimiter_Remaining(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)

	if got := rl.Remaining("192.0.2.10"); got != 5 {
		t.Errorf("fresh key remaining = %d, want 5", got)
	}

	rl.Allow("192.0.2.10")
	rl.Allow("192.0.2.10")

	if got := rl.Remaining("192.0.2.10"); got != 3 {
		t.Errorf("remaining after 2 requests = %d, want 3", got)
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := NewRateLimiter(2, 50*time.Millisecond)

	rl.Allow("192.0.2.10")
	rl.Allow("192.0.2.10")
	if rl.Allow("192.0.2.10") {
		t.Fatal("third request inside the window should be denied")
	}

	time.Sleep(60 * time.Millisecond)

	if !rl.Allow("192.0.2.10") {
		t.Error("request after the window slides should be allowed")
	}
}

func TestRateLimiter_Handler(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
	req.RemoteAddr = "192.0.2.10:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Error("denied response should carry X-RateLimit-Remaining: 0")
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("denied response should carry X-RateLimit-Reset")
	}
}
