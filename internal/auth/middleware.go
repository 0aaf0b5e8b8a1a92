// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/nmoreau/vantage/internal/apperror"
	"github.com/nmoreau/vantage/internal/logging"
)

type contextKey string

const principalKey contextKey = "auth_principal"

// ContextWithPrincipal stores the verified principal in the context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the verified principal, or nil when the
// request was not authenticated.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// ErrorResponder writes an error response through the terminal error handler.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

// BearerToken extracts the bearer token from the Authorization header.
// Returns empty string when the header is absent or not a bearer scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate requires a valid bearer token on every request.
//
// The client always receives the same generic unauthenticated error; the
// verifier's actual rejection reason goes to the log, never the response.
func Authenticate(verifier Verifier, respond ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				respond(w, r, apperror.Unauthenticated("Authentication required"))
				return
			}

			principal, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logging.Ctx(r.Context()).Warn().
					Err(err).
					Str("token", logging.MaskToken(token)).
					Msg("Authentication rejected")
				respond(w, r, apperror.Unauthenticated("Invalid or expired credentials"))
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			ctx = logging.ContextWithPrincipalID(ctx, principal.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional attaches a principal when a valid bearer token is present and
// passes the request through anonymously otherwise. It never fails the
// request: public endpoints use it to personalize responses.
func Optional(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logging.Ctx(r.Context()).Debug().
					Err(err).
					Msg("Optional authentication failed, continuing anonymously")
				next.ServeHTTP(w, r)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			ctx = logging.ContextWithPrincipalID(ctx, principal.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only principals holding at least one of the given
// roles. Must run after Authenticate. A missing principal gets the same 403
// as a missing role: the gate answers "may you do this" with one response.
func RequireRole(respond ErrorResponder, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				logging.Ctx(r.Context()).Warn().
					Strs("required_roles", roles).
					Str("path", r.URL.Path).
					Msg("Role check reached without a principal")
				respond(w, r, apperror.Forbidden("Insufficient permissions"))
				return
			}
			if !principal.HasAnyRole(roles...) {
				logging.Ctx(r.Context()).Warn().
					Str("principal_id", principal.ID).
					Strs("required_roles", roles).
					Msg("Role check failed")
				respond(w, r, apperror.Forbidden("Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
