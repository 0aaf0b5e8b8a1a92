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

	"github.com/golang-jwt/jwt/v5"
)

const serviceIssuer = "vantage-internal"

// ServiceClaims are the claims carried by internal service tokens.
type ServiceClaims struct {
	Service string `json:"service"`
	jwt.RegisteredClaims
}

// ServiceVerifier validates HMAC-signed tokens issued to internal services
// (job workers, the webhook relay, the asset pipeline). Service tokens never
// touch the identity provider, so worker traffic survives a provider outage.
type ServiceVerifier struct {
	secret []byte
}

// NewServiceVerifier builds the verifier. The shared secret must be at least
// 32 bytes.
func NewServiceVerifier(secret string) (*ServiceVerifier, error) {
	if len(secret) < 32 {
		return nil, errors.New("auth: service token secret must be at least 32 characters")
	}
	return &ServiceVerifier{secret: []byte(secret)}, nil
}

// Mint issues a service token. Used by internal callers and tests.
func (v *ServiceVerifier) Mint(service string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &ServiceClaims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    serviceIssuer,
			Subject:   service,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign service token: %w", err)
	}
	return signed, nil
}

// Verify implements Verifier.
func (v *ServiceVerifier) Verify(_ context.Context, tokenString string) (*Principal, error) {
	if tokenString == "" {
		return nil, ErrNoCredentials
	}

	token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithIssuer(serviceIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCredentials
		}
		if errors.Is(err, jwt.ErrTokenInvalidIssuer) || errors.Is(err, jwt.ErrTokenMalformed) {
			// Not one of ours. Let the chain try the next verifier.
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, err)
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid || claims.Service == "" {
		return nil, ErrInvalidCredentials
	}

	return &Principal{
		ID:     claims.Service,
		Name:   claims.Service,
		Roles:  []string{"service"},
		Issuer: serviceIssuer,
		Method: MethodService,
	}, nil
}

// Name implements Verifier.
func (v *ServiceVerifier) Name() string { return MethodService }

// Priority implements Verifier. Tried before introspection: a local HMAC
// check is cheap and filters service traffic without a network call.
func (v *ServiceVerifier) Priority() int { return 5 }
