// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package ratelimit

import (
	"context"
	"time"

	"github.com/nmoreau/vantage/internal/apperror"
	"github.com/nmoreau/vantage/internal/logging"
	"github.com/nmoreau/vantage/internal/metrics"
)

// Decision is the outcome of a policy check, carrying the metadata for the
// standard rate-limit response headers.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	Reset     time.Time

	// Degraded is set when the store was unreachable and the policy's
	// fail mode decided the outcome instead of a counter.
	Degraded bool
}

// Limiter checks requests against named policies using a shared Store.
type Limiter struct {
	store Store
}

// NewLimiter creates a limiter backed by the given store.
func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// Check atomically counts the request under (policy, key) and decides.
//
// On denial the returned error is a rate-limited AppError carrying the
// policy's message; the Decision still carries header metadata. On store
// failure the policy's fail mode decides: FailOpen allows the request with a
// degraded decision, FailClosed denies with an upstream-unavailable error so
// clients can distinguish store loss from an exhausted quota.
func (l *Limiter) Check(ctx context.Context, policy Policy, key string) (Decision, error) {
	count, reset, err := l.store.Incr(ctx, policy.Name+":"+key, policy.Window)
	if err != nil {
		metrics.RateLimitStoreErrors.WithLabelValues(policy.Name).Inc()
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("policy", policy.Name).
			Bool("fail_open", policy.Mode == FailOpen).
			Msg("Rate-limit store unreachable")

		// The store's reset is meaningless on failure; advertise the next
		// full window so clients see a sane X-RateLimit-Reset.
		reset = time.Now().Add(policy.Window)

		if policy.Mode == FailOpen {
			return Decision{
				Allowed:   true,
				Limit:     policy.Max,
				Remaining: policy.Max,
				Reset:     reset,
				Degraded:  true,
			}, nil
		}
		return Decision{Limit: policy.Max, Reset: reset, Degraded: true},
			apperror.Upstream("Service temporarily unavailable", err)
	}

	remaining := policy.Max - count
	if remaining < 0 {
		remaining = 0
	}
	decision := Decision{
		Allowed:   count <= policy.Max,
		Limit:     policy.Max,
		Remaining: remaining,
		Reset:     reset,
	}
	if !decision.Allowed {
		return decision, apperror.RateLimited(policy.Message)
	}
	return decision, nil
}
