// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

// Package auth provides bearer-token authentication for the API.
//
// Credentials are verified by a chain of verifiers tried in priority order:
// workspace users carry identity-provider access tokens checked via
// introspection, internal services carry locally signed service tokens. The
// verified identity is normalized into a Principal regardless of source.
package auth

import (
	"context"
	"errors"
)

// Verification method names.
const (
	MethodOIDC    = "oidc"
	MethodService = "service"
)

// Standard verification errors.
var (
	// ErrNoCredentials indicates the request carried no usable credential
	// for this verifier.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates a credential was provided but failed
	// verification.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrExpiredCredentials indicates the credential has expired or been
	// revoked.
	ErrExpiredCredentials = errors.New("credentials expired")

	// ErrVerifierUnavailable indicates the verifier's backing provider is
	// unreachable.
	ErrVerifierUnavailable = errors.New("verifier unavailable")
)

// Principal is a verified identity, normalized across verification sources.
type Principal struct {
	// ID uniquely identifies the principal: the subject claim for user
	// tokens, the service name for service tokens.
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name,omitempty"`

	// Email is the principal's email address, when the source provides one.
	Email string `json:"email,omitempty"`

	// Roles are the principal's workspace roles (member, editor, admin,
	// owner for users; service for internal callers).
	Roles []string `json:"roles,omitempty"`

	// Issuer identifies the verification source.
	Issuer string `json:"issuer,omitempty"`

	// Method records which verifier accepted the credential.
	Method string `json:"method"`
}

// HasRole reports whether the principal holds the given role.
func (p *Principal) HasRole(role string) bool {
	if p == nil || role == "" {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the principal holds at least one of the roles.
func (p *Principal) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}

// Verifier validates one kind of bearer credential.
type Verifier interface {
	// Verify validates the raw bearer token and returns the principal it
	// proves. Returns ErrNoCredentials when the token is not of this
	// verifier's kind.
	Verify(ctx context.Context, token string) (*Principal, error)

	// Name returns the verifier's name for logging and metrics.
	Name() string

	// Priority orders verifiers in a chain. Lower values are tried first.
	Priority() int
}
