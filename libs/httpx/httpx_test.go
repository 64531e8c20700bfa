package httpx

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(okHandler(), mark("a"), mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Join(order, ",") != "a,b" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "req-1" || rr.Header().Get(RequestIDHeader) != "req-1" {
		t.Fatalf("expected inbound request id to be kept, got %q", seen)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rr.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated request id, got %q", seen)
	}
}

func TestInMemoryRateLimiterPerApplicant(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware()(okHandler())

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(UserIDHeader, user)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := call("u1"); code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d", i, code)
		}
	}
	if code := call("u1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if code := call("u2"); code != http.StatusOK {
		t.Fatalf("other applicant must have its own bucket, got %d", code)
	}

	now = now.Add(2 * time.Minute)
	if code := call("u1"); code != http.StatusOK {
		t.Fatalf("expected window reset, got %d", code)
	}
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRedisRateLimiter(rdb, 1, time.Minute, "test")
	h := rl.Middleware(nil, false)(okHandler())

	req := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, r)
		return rr
	}
	if rr := req(); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	rr := req()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60, got %q", rr.Header().Get("Retry-After"))
	}
	if !mr.Exists("test:ip:10.0.0.1") {
		t.Fatal("expected window key in redis")
	}
}

func TestRedisRateLimiterFailOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	rl := NewRedisRateLimiter(rdb, 1, time.Minute, "")
	for _, tc := range []struct {
		failOpen bool
		want     int
	}{
		{failOpen: true, want: http.StatusOK},
		{failOpen: false, want: http.StatusServiceUnavailable},
	} {
		rr := httptest.NewRecorder()
		rl.Middleware(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), tc.failOpen)(okHandler()).
			ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != tc.want {
			t.Fatalf("failOpen=%v: expected %d, got %d", tc.failOpen, tc.want, rr.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	h := WithCORS(CORSPolicy{
		AllowedOrigins: []string{"https://visa.example"},
		AllowedMethods: []string{"GET", "POST"},
		MaxAge:         time.Minute,
	})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/biometrics", nil)
	req.Header.Set("Origin", "https://visa.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://visa.example" {
		t.Fatalf("unexpected allow-origin %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://other.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unexpected CORS header for unknown origin")
	}
}

func TestDecodeJSONAndRecover(t *testing.T) {
	var dst struct {
		Date string `json:"date"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"date":"2026-03-02","extra":1}`))
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(req, &dst); err != nil {
		t.Fatalf("empty body should decode: %v", err)
	}

	var buf bytes.Buffer
	h := WithRecover(slog.New(slog.NewJSONHandler(&buf, nil)))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(buf.String(), "panic in handler") {
		t.Fatalf("expected panic log, got %q", buf.String())
	}
}
