// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nmoreau/vantage/internal/apperror"
	"github.com/nmoreau/vantage/internal/logging"
)

// testResponder maps errors to bare status codes for middleware tests.
func testResponder(w http.ResponseWriter, _ *http.Request, err error) {
	w.WriteHeader(apperror.From(err).HTTPStatus)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareSetsHeadersAndDenies(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore())
	policy := Policy{Name: "test", Max: 2, Window: time.Minute, Mode: FailOpen, Message: "slow down"}
	handler := Middleware(limiter, policy, NewKeyDeriver(nil), testResponder)(okHandler())

	for i := 1; i <= 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil)
		req.RemoteAddr = "10.0.0.1:41000"
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
			t.Errorf("request %d: X-RateLimit-Limit = %q, want 2", i, got)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got == "" {
			t.Errorf("request %d: X-RateLimit-Remaining missing", i)
		}
		if got := rec.Header().Get("X-RateLimit-Reset"); got == "" {
			t.Errorf("request %d: X-RateLimit-Reset missing", i)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil)
	req.RemoteAddr = "10.0.0.1:41000"
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over-limit status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("over-limit X-RateLimit-Remaining = %q, want 0", got)
	}
	if got := rec.Header().Get("Retry-After"); got == "" {
		t.Error("over-limit Retry-After missing")
	}
}

func TestMiddlewareKeyDerivation(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore())
	policy := Policy{Name: "test", Max: 1, Window: time.Minute, Mode: FailOpen}
	handler := Middleware(limiter, policy, NewKeyDeriver(nil), testResponder)(okHandler())

	// Two unauthenticated clients at distinct addresses get distinct budgets.
	for _, addr := range []string{"10.0.0.1:41000", "10.0.0.2:41000"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("addr %s: status = %d, want 200", addr, rec.Code)
		}
	}

	// An authenticated principal is counted by identity, not address.
	for i, addr := range []string{"10.0.0.3:41000", "10.0.0.4:41000"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		req = req.WithContext(logging.ContextWithPrincipalID(req.Context(), "user-7"))
		handler.ServeHTTP(rec, req)

		want := http.StatusOK
		if i == 1 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Errorf("principal request %d: status = %d, want %d", i+1, rec.Code, want)
		}
	}
}

func TestKeyDeriverClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trusted    []string
		want       string
	}{
		{
			name:       "plain remote addr",
			remoteAddr: "10.0.0.1:41000",
			want:       "ip:10.0.0.1",
		},
		{
			name:       "forwarded header ignored from untrusted peer",
			remoteAddr: "10.0.0.1:41000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:       "ip:10.0.0.1",
		},
		{
			name:       "forwarded header honored from trusted proxy",
			remoteAddr: "10.0.0.1:41000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"},
			trusted:    []string{"10.0.0.1"},
			want:       "ip:203.0.113.9",
		},
		{
			name:       "real-ip honored from trusted proxy",
			remoteAddr: "10.0.0.1:41000",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			trusted:    []string{"10.0.0.1"},
			want:       "ip:203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deriver := NewKeyDeriver(tt.trusted)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := deriver.Key(req); got != tt.want {
				t.Errorf("Key = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddlewareComposition(t *testing.T) {
	// Two stacked policies must both pass. The outer one is generous, the
	// inner one allows a single request.
	limiter := NewLimiter(NewMemoryStore())
	outer := Policy{Name: "outer", Max: 100, Window: time.Minute, Mode: FailOpen}
	inner := Policy{Name: "inner", Max: 1, Window: time.Minute, Mode: FailOpen}

	deriver := NewKeyDeriver(nil)
	handler := Middleware(limiter, outer, deriver, testResponder)(
		Middleware(limiter, inner, deriver, testResponder)(okHandler()))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:41000"
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK {
		t.Errorf("first request status = %d, want 200", codes[0])
	}
	if codes[1] != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429 from inner policy", codes[1])
	}
}
