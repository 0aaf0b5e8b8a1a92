// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/nmoreau/vantage/internal/apperror"
	"github.com/nmoreau/vantage/internal/logging"
	"github.com/nmoreau/vantage/internal/metrics"
)

// ErrorResponder writes an error response through the terminal error handler.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

// Recover converts handler panics into internal-error responses so a single
// bad request cannot take down the process. The panic value and stack go to
// the log; the client sees only the generic internal error.
func Recover(respond ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					// The server uses this sentinel to abort the
					// connection. Not ours to swallow.
					panic(rec)
				}

				metrics.APIPanicsRecovered.Inc()
				logging.Ctx(r.Context()).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("Handler panic recovered")

				err := apperror.Internal(fmt.Errorf("panic: %v", rec))
				respond(w, r, err)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
