package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/userhub/userhub/internal/cache"
)

func newRateLimitHandler(t *testing.T, cfg RateLimitConfig) http.Handler {
	t.Helper()

	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg.Logger = slog.Default()
	cfg.Cache = cache.NewWithClient(client)

	return RateLimitIP(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimitIP_BurstThenDeny(t *testing.T) {
	t.Parallel()

	h := newRateLimitHandler(t, RateLimitConfig{Enabled: true, RPS: 1, Burst: 3})

	var last int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		last = rec.Code

		if i < 3 && rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("final status = %d, want 429", last)
	}
}

func TestRateLimitIP_Disabled(t *testing.T) {
	t.Parallel()

	h := newRateLimitHandler(t, RateLimitConfig{Enabled: false, RPS: 1, Burst: 1})

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200 when disabled", i, rec.Code)
		}
	}
}

func TestRateLimitIP_PerClientIsolation(t *testing.T) {
	t.Parallel()

	h := newRateLimitHandler(t, RateLimitConfig{Enabled: true, RPS: 1, Burst: 1})

	// Exhaust the first client's bucket.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}
}
