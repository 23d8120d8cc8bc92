package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	l := New(2, time.Minute)

	if !l.Allow("1.2.3.4") || !l.Allow("1.2.3.4") {
		t.Fatal("requests within the limit should be allowed")
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("request over the limit should be blocked")
	}
	// Other keys are independent.
	if !l.Allow("5.6.7.8") {
		t.Fatal("different key should not share a window")
	}
}

func TestResetClearsWindow(t *testing.T) {
	l := New(1, time.Minute)
	l.Allow("1.2.3.4")
	l.Reset("1.2.3.4")
	if !l.Allow("1.2.3.4") {
		t.Fatal("reset key should be allowed again")
	}
}

func TestMiddleware(t *testing.T) {
	l := New(1, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/session", nil)
	req.RemoteAddr = "9.9.9.9:1234"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: %d, want 429", rec.Code)
	}
}

func TestClientIPHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	if got := ClientIP(req); got != "10.0.0.1" {
		t.Errorf("remote addr ip = %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Errorf("forwarded ip = %q", got)
	}
}
