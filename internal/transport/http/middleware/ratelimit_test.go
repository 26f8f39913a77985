package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hrleave/internal/domain/auth"
	"hrleave/internal/platform/cache"
)

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestRateLimitUsesCallerKeyBeforeIPFallback(t *testing.T) {
	limited := RateLimit(cache.NewMemory(), 1, time.Minute)(http.HandlerFunc(noContent))
	callerCtx := auth.WithCaller(context.Background(), auth.Caller{ID: "user-1", Role: auth.RoleAdmin})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/leave/requests/r1/approve", nil).WithContext(callerCtx)
	first.RemoteAddr = "198.51.100.11:2222"
	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, first)
	if firstRec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", firstRec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/leave/requests/r1/approve", nil).WithContext(callerCtx)
	second.RemoteAddr = "198.51.100.12:3333"
	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, second)
	if secondRec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled by caller key, got %d", secondRec.Code)
	}
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	limited := RateLimit(cache.NewMemory(), 1, time.Minute)(http.HandlerFunc(noContent))

	first := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"a@example.com"}`))
	first.Header.Set("Content-Type", "application/json")
	first.RemoteAddr = "203.0.113.10:4444"
	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, first)
	if firstRec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", firstRec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"b@example.com"}`))
	second.Header.Set("Content-Type", "application/json")
	second.RemoteAddr = "203.0.113.10:5555"
	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, second)
	if secondRec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled by ip key, got %d", secondRec.Code)
	}
}

func TestRateLimitWindowReset(t *testing.T) {
	limited := RateLimit(cache.NewMemory(), 1, 40*time.Millisecond)(http.HandlerFunc(noContent))

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/leave/requests", nil)
		req.RemoteAddr = "192.0.2.20:1111"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := send(); code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", code)
	}
	time.Sleep(50 * time.Millisecond)
	if code := send(); code != http.StatusNoContent {
		t.Fatalf("expected request after window reset to pass, got %d", code)
	}
}

func TestRateLimitReturnsRetryMetadata(t *testing.T) {
	limited := RateLimit(cache.NewMemory(), 1, time.Minute)(http.HandlerFunc(noContent))

	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req1.RemoteAddr = "192.0.2.30:1234"
	limited.ServeHTTP(httptest.NewRecorder(), req1)

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req2.RemoteAddr = "192.0.2.30:1234"
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, req2)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected throttled response, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" || rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatalf("expected retry headers, got %v", rec.Header())
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("expected zero remaining, got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

type brokenCounter struct{}

func (brokenCounter) Incr(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	limited := RateLimit(brokenCounter{}, 1, time.Minute)(http.HandlerFunc(noContent))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected pass-through, got %d", i+1, rec.Code)
		}
	}
}

func TestSensitiveMutationRateLimitScope(t *testing.T) {
	limited := SensitiveMutationRateLimit(cache.NewMemory(), 4, time.Minute)(http.HandlerFunc(noContent))

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/leave", nil)
		req.RemoteAddr = "198.51.100.40:8888"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected read request %d to bypass sensitive limits, got %d", i+1, rec.Code)
		}
	}

	callerCtx := auth.WithCaller(context.Background(), auth.Caller{ID: "md-1", Role: auth.RoleMD})
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/leave/requests/r1/reject", nil).WithContext(callerCtx)
		req.RemoteAddr = "198.51.100.41:9999"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		if i < 2 && rec.Code != http.StatusNoContent {
			t.Fatalf("expected sensitive request %d to pass, got %d", i+1, rec.Code)
		}
		if i == 2 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected third sensitive request to be throttled, got %d", rec.Code)
		}
	}
}

func TestSensitiveLoginLimitedPerEmail(t *testing.T) {
	limited := SensitiveMutationRateLimit(cache.NewMemory(), 4, time.Minute)(http.HandlerFunc(noContent))

	login := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"Victim@example.com","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := login("198.51.100.1:1"); code != http.StatusNoContent {
		t.Fatalf("expected first login to pass, got %d", code)
	}
	if code := login("198.51.100.2:1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second login for the same email to be throttled, got %d", code)
	}
}

func TestSensitiveRateScope(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   sensitiveScope
	}{
		{http.MethodPost, "/api/v1/auth/login", sensitiveScopeAuth},
		{http.MethodPost, "/api/v1/auth/register", sensitiveScopeAuth},
		{http.MethodPut, "/api/v1/me/password", sensitiveScopeAuth},
		{http.MethodPost, "/api/v1/employees/balances/reset", sensitiveScopeActor},
		{http.MethodPost, "/api/v1/leave/requests/abc/approve", sensitiveScopeActor},
		{http.MethodPost, "/api/v1/leave/requests/abc/cancel", sensitiveScopeNone},
		{http.MethodGet, "/api/v1/auth/login", sensitiveScopeNone},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			if got := sensitiveRateScope(httptest.NewRequest(tc.method, tc.path, nil)); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
