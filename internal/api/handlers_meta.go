// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package api

import (
	"net/http"

	"github.com/nmoreau/vantage/internal/apperror"
	"github.com/nmoreau/vantage/internal/auth"
)

// VersionHandler reports the running build. Public.
func VersionHandler(version, environment string) http.HandlerFunc {
	body := map[string]string{
		"name":        "vantage",
		"version":     version,
		"environment": environment,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		RespondOK(w, r, body)
	}
}

// MeHandler returns the authenticated principal. Mounted behind the auth
// gate, so the principal is always present.
func MeHandler(errh *ErrorHandler) http.HandlerFunc {
	type me struct {
		ID     string   `json:"id"`
		Name   string   `json:"name,omitempty"`
		Email  string   `json:"email,omitempty"`
		Roles  []string `json:"roles,omitempty"`
		Method string   `json:"method"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.PrincipalFromContext(r.Context())
		if p == nil {
			errh.RespondError(w, r, apperror.Unauthenticated("Authentication required"))
			return
		}
		RespondOK(w, r, me{
			ID:     p.ID,
			Name:   p.Name,
			Email:  p.Email,
			Roles:  p.Roles,
			Method: p.Method,
		})
	}
}

// TokenCheckHandler verifies a caller-supplied token and reports whether it
// is currently valid. It deliberately mirrors the auth gate's opacity: the
// response never says why a token was rejected. Mounted under the
// fail-closed authentication-attempt policy because it is a verification
// oracle.
func TokenCheckHandler(verifier auth.Verifier, errh *ErrorHandler) http.HandlerFunc {
	type request struct {
		Token string `json:"token" validate:"required"`
	}
	type result struct {
		Active      bool   `json:"active"`
		PrincipalID string `json:"principal_id,omitempty"`
		Method      string `json:"method,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := DecodeJSON(r, &req); err != nil {
			errh.RespondError(w, r, err)
			return
		}
		p, err := verifier.Verify(r.Context(), req.Token)
		if err != nil {
			RespondOK(w, r, result{Active: false})
			return
		}
		RespondOK(w, r, result{Active: true, PrincipalID: p.ID, Method: p.Method})
	}
}
