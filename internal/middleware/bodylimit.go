// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package middleware

import (
	"net/http"
)

// DefaultBodyLimit caps request bodies at 1 MiB. Binary asset uploads go
// through the storage provider directly and never hit the API with payloads
// this size.
const DefaultBodyLimit = 1 << 20

// BodyLimit caps the readable request body at maxBytes. A body of exactly
// maxBytes is accepted; the first byte past it makes the handler's read fail
// and http.MaxBytesReader closes the connection. Handlers surface the
// overflow through their body-decoding error path.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultBodyLimit
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
