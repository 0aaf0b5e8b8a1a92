// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/zitadel/oidc/v3/pkg/client/rs"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/nmoreau/vantage/internal/logging"
	"github.com/nmoreau/vantage/internal/metrics"
)

// OIDCVerifier validates workspace-user access tokens by introspecting them
// against the identity provider.
//
// Introspection calls go through a circuit breaker: when the provider is
// down, the breaker opens and verification fails fast with
// ErrVerifierUnavailable instead of stalling every request on a dead
// upstream. An unavailable provider never converts into "invalid
// credentials" so callers can distinguish outage from rejection.
type OIDCVerifier struct {
	server  rs.ResourceServer
	issuer  string
	roles   func(claims map[string]any) []string
	breaker *gobreaker.CircuitBreaker[*oidc.IntrospectionResponse]
}

// OIDCConfig configures the identity-provider connection.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string

	// RolesClaim is the claim holding workspace roles. Defaults to "roles".
	RolesClaim string
}

// NewOIDCVerifier discovers the provider's introspection endpoint and builds
// the verifier. Discovery requires the provider to be reachable at startup.
func NewOIDCVerifier(ctx context.Context, cfg OIDCConfig) (*OIDCVerifier, error) {
	server, err := rs.NewResourceServerClientCredentials(ctx, cfg.Issuer, cfg.ClientID, cfg.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("auth: identity provider discovery for %s: %w", cfg.Issuer, err)
	}

	rolesClaim := cfg.RolesClaim
	if rolesClaim == "" {
		rolesClaim = "roles"
	}

	breakerName := "identity-provider"
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	breaker := gobreaker.NewCircuitBreaker[*oidc.IntrospectionResponse](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := breakerStateString(from), breakerStateString(to)
			logging.Warn().
				Str("breaker", name).
				Str("from", fromStr).
				Str("to", toStr).
				Msg("Identity provider circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateFloat(to))
			metrics.RecordBreakerTransition(name, fromStr, toStr)
		},
	})

	return &OIDCVerifier{
		server: server,
		issuer: cfg.Issuer,
		roles: func(claims map[string]any) []string {
			return stringSliceClaim(claims, rolesClaim)
		},
		breaker: breaker,
	}, nil
}

// Verify implements Verifier.
func (v *OIDCVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrNoCredentials
	}

	resp, err := v.breaker.Execute(func() (*oidc.IntrospectionResponse, error) {
		return rs.Introspect[*oidc.IntrospectionResponse](ctx, v.server, token)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrVerifierUnavailable)
		}
		return nil, fmt.Errorf("%w: introspection: %s", ErrVerifierUnavailable, err)
	}

	if !resp.Active {
		// Introspection does not say whether the token is malformed,
		// revoked, or expired. Inactive is inactive.
		return nil, ErrExpiredCredentials
	}
	if resp.Subject == "" {
		return nil, ErrInvalidCredentials
	}

	principal := &Principal{
		ID:     resp.Subject,
		Name:   resp.Username,
		Email:  resp.Email,
		Roles:  v.roles(resp.Claims),
		Issuer: v.issuer,
		Method: MethodOIDC,
	}

	logging.Ctx(ctx).Debug().
		Str("principal_id", principal.ID).
		Int("roles", len(principal.Roles)).
		Msg("Access token introspected")

	return principal, nil
}

// Healthy reports provider reachability for the health endpoint, judged by
// the breaker state rather than a live probe so health checks never add
// introspection load.
func (v *OIDCVerifier) Healthy(_ context.Context) error {
	if state := v.breaker.State(); state == gobreaker.StateOpen {
		return errors.New("identity provider circuit open")
	}
	return nil
}

// Name implements Verifier.
func (v *OIDCVerifier) Name() string { return MethodOIDC }

// Priority implements Verifier. User tokens are the common case.
func (v *OIDCVerifier) Priority() int { return 10 }

// stringSliceClaim extracts a []string claim tolerating the JSON decodings
// providers actually emit: []any, []string, or a single string.
func stringSliceClaim(claims map[string]any, name string) []string {
	if claims == nil {
		return nil
	}
	switch raw := claims[name].(type) {
	case []string:
		return raw
	case []any:
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{raw}
	default:
		return nil
	}
}

func breakerStateFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
