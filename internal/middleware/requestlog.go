// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nmoreau/vantage/internal/logging"
)

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

// WriteHeader captures the status code.
func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Write tracks the response size.
func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// RequestLogger emits exactly one structured record per request on
// completion. Health and metrics probes are skipped unless they fail, so
// scrape intervals do not drown the log.
//
// The completion record carries the principal ID when the auth gate further
// down the chain attached one; the tracking slot installed here is what
// makes that visible on the outer context.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		r = r.WithContext(logging.WithPrincipalTracking(r.Context()))

		next.ServeHTTP(sw, r)

		if quietPath(r.URL.Path) && sw.status < http.StatusInternalServerError {
			return
		}

		var event *zerolog.Event
		switch {
		case sw.status >= http.StatusInternalServerError:
			event = logging.Ctx(r.Context()).Error()
		case sw.status >= http.StatusBadRequest:
			event = logging.Ctx(r.Context()).Warn()
		default:
			event = logging.Ctx(r.Context()).Info()
		}

		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Int64("bytes", sw.bytes).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("Request completed")
	})
}

// quietPath reports whether the path is a monitoring probe.
func quietPath(path string) bool {
	return strings.HasPrefix(path, "/health") ||
		strings.HasPrefix(path, "/api/v1/health") ||
		path == "/metrics"
}
