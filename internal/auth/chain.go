// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package auth

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/nmoreau/vantage/internal/metrics"
)

// Chain tries verifiers in priority order until one accepts the token.
//
// Error handling:
//   - ErrNoCredentials: try the next verifier (token not of this kind)
//   - ErrVerifierUnavailable: try the next verifier (provider unreachable)
//   - ErrInvalidCredentials / ErrExpiredCredentials: stop, the token was of
//     this kind and failed
type Chain struct {
	verifiers []Verifier
}

// NewChain builds a chain from the given verifiers, sorted by priority.
func NewChain(verifiers ...Verifier) *Chain {
	c := &Chain{verifiers: make([]Verifier, 0, len(verifiers))}
	c.verifiers = append(c.verifiers, verifiers...)
	sort.Slice(c.verifiers, func(i, j int) bool {
		return c.verifiers[i].Priority() < c.verifiers[j].Priority()
	})
	return c
}

// Verify implements Verifier.
func (c *Chain) Verify(ctx context.Context, token string) (*Principal, error) {
	if len(c.verifiers) == 0 {
		return nil, ErrNoCredentials
	}

	lastErr := ErrNoCredentials
	for _, v := range c.verifiers {
		start := time.Now()
		principal, err := v.Verify(ctx, token)
		if err == nil {
			metrics.RecordAuthAttempt(v.Name(), "success", time.Since(start))
			return principal, nil
		}

		lastErr = err
		if errors.Is(err, ErrNoCredentials) {
			// Token not of this verifier's kind, nothing to record.
			continue
		}
		if errors.Is(err, ErrVerifierUnavailable) {
			metrics.RecordAuthAttempt(v.Name(), "error", time.Since(start))
			continue
		}
		metrics.RecordAuthAttempt(v.Name(), "failure", time.Since(start))
		return nil, err
	}
	return nil, lastErr
}

// Name implements Verifier.
func (c *Chain) Name() string { return "chain" }

// Priority implements Verifier.
func (c *Chain) Priority() int { return 0 }
