// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

// Package middleware holds the ordered HTTP pipeline stages that run before
// any route handler.
package middleware

import (
	"net/http"

	"github.com/nmoreau/vantage/internal/logging"
)

// CorrelationHeader is the request/response header carrying the correlation ID.
const CorrelationHeader = "X-Correlation-ID"

// CorrelationID ensures every request has a correlation ID.
//
// A syntactically valid inbound ID is kept so callers can trace a request
// across services; anything else is replaced with a fresh one. The final ID
// is stored in the request context and echoed on the response.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if !logging.ValidCorrelationID(id) {
			id = logging.GenerateCorrelationID()
		}

		ctx := logging.ContextWithCorrelationID(r.Context(), id)
		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
