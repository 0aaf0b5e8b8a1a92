// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nmoreau/vantage/internal/apperror"
	"github.com/nmoreau/vantage/internal/logging"
)

func respondStatus(w http.ResponseWriter, _ *http.Request, err error) {
	w.WriteHeader(apperror.From(err).HTTPStatus)
}

func TestCorrelationIDGeneratesWhenMissing(t *testing.T) {
	var inContext string
	handler := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inContext = logging.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	echoed := rec.Header().Get(CorrelationHeader)
	if echoed == "" {
		t.Fatal("response missing correlation header")
	}
	if inContext != echoed {
		t.Errorf("context ID %q != response header %q", inContext, echoed)
	}
}

func TestCorrelationIDKeepsValidInbound(t *testing.T) {
	handler := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "upstream-trace-42")
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(CorrelationHeader); got != "upstream-trace-42" {
		t.Errorf("correlation ID = %q, want inbound value kept", got)
	}
}

func TestCorrelationIDReplacesInvalidInbound(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"invalid characters", "bad id\nwith newline"},
		{"too long", strings.Repeat("a", 65)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(CorrelationHeader, tt.id)
			handler.ServeHTTP(rec, req)

			got := rec.Header().Get(CorrelationHeader)
			if got == tt.id || got == "" {
				t.Errorf("invalid inbound ID %q was not replaced (got %q)", tt.id, got)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set on plain HTTP request")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing behind TLS-terminating proxy")
	}
}

func TestBodyLimitBoundary(t *testing.T) {
	const limit = 16

	readAll := func(t *testing.T, body []byte) error {
		t.Helper()
		var readErr error
		handler := BodyLimit(limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, readErr = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		}))
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
		handler.ServeHTTP(rec, req)
		return readErr
	}

	if err := readAll(t, bytes.Repeat([]byte("a"), limit)); err != nil {
		t.Errorf("body of exactly the limit failed to read: %v", err)
	}

	err := readAll(t, bytes.Repeat([]byte("a"), limit+1))
	if err == nil {
		t.Fatal("body one byte over the limit read successfully")
	}
	var maxBytesErr *http.MaxBytesError
	if !errors.As(err, &maxBytesErr) {
		t.Errorf("overflow error = %T, want MaxBytesError", err)
	}
}

func TestRequestLoggerPreservesResponse(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	if rec.Body.String() != "short and stout" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRequestLoggerCarriesPrincipal(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	defer logging.SetLogger(prev)

	// The auth gate runs after the logger and attaches the principal on a
	// derived context; the completion record must still carry it.
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.ContextWithPrincipalID(r.Context(), "user-42")
		r = r.WithContext(ctx)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil))

	record := buf.String()
	if !strings.Contains(record, "Request completed") {
		t.Fatalf("no completion record emitted: %s", record)
	}
	if !strings.Contains(record, `"principal_id":"user-42"`) {
		t.Errorf("completion record missing principal: %s", record)
	}
}

func TestRequestLoggerAnonymousOmitsPrincipal(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	defer logging.SetLogger(prev)

	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))

	if strings.Contains(buf.String(), "principal_id") {
		t.Errorf("anonymous completion record carries a principal: %s", buf.String())
	}
}

func TestQuietPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/health", true},
		{"/health/live", true},
		{"/api/v1/health", true},
		{"/metrics", true},
		{"/api/v1/assets", false},
		{"/", false},
	}
	for _, tt := range tests {
		if got := quietPath(tt.path); got != tt.want {
			t.Errorf("quietPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRecoverConvertsPanic(t *testing.T) {
	handler := Recover(respondStatus)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRecoverPassesThroughAbortHandler(t *testing.T) {
	handler := Recover(respondStatus)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if recover() != http.ErrAbortHandler {
			t.Error("ErrAbortHandler was swallowed")
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRecoverNoPanicPassthrough(t *testing.T) {
	handler := Recover(respondStatus)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
}
