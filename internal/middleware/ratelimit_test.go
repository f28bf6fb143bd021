package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitEnforcesWindow(t *testing.T) {
	handler := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/plaques", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send("192.0.2.1"); rec.Code != http.StatusAccepted {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
	}
	rec := send("192.0.2.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("429 response missing Retry-After")
	}

	// A different client keeps its own budget.
	if rec := send("192.0.2.2"); rec.Code != http.StatusAccepted {
		t.Fatalf("other ip status = %d", rec.Code)
	}
}

func TestRateLimitWindowResets(t *testing.T) {
	handler := RateLimit(1, 20*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "192.0.2.5:1000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}

	time.Sleep(30 * time.Millisecond)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("post-window request status = %d", rec.Code)
	}
}

func TestClientIPForRateLimitSkipsGarbageForwardedEntries(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:9999"
	req.Header.Set("X-Forwarded-For", "not-an-ip, 203.0.113.4")
	if got := clientIPForRateLimit(req); got != "203.0.113.4" {
		t.Fatalf("clientIPForRateLimit = %q", got)
	}

	req.Header.Set("X-Forwarded-For", "junk")
	if got := clientIPForRateLimit(req); got != "198.51.100.7" {
		t.Fatalf("fallback ip = %q", got)
	}
}
