// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nmoreau/vantage/internal/apperror"
)

// brokenStore simulates an unreachable shared store.
type brokenStore struct {
	err error
}

func (s *brokenStore) Incr(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, s.err
}

func TestLimiterAllowsUpToMaxThenDenies(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore())
	policy := Policy{Name: "test", Max: 3, Window: time.Minute, Mode: FailOpen, Message: "slow down"}
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		decision, err := limiter.Check(ctx, policy, "ip:10.0.0.1")
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("request %d: denied before limit", i)
		}
		if want := policy.Max - i; decision.Remaining != want {
			t.Errorf("request %d: remaining = %d, want %d", i, decision.Remaining, want)
		}
	}

	decision, err := limiter.Check(ctx, policy, "ip:10.0.0.1")
	if decision.Allowed {
		t.Fatal("request over limit was allowed")
	}
	if decision.Remaining != 0 {
		t.Errorf("remaining on denial = %d, want 0", decision.Remaining)
	}
	if !apperror.IsKind(err, apperror.KindRateLimited) {
		t.Fatalf("denial error kind = %v, want rate-limited", err)
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Message != "slow down" {
		t.Errorf("denial message = %q, want policy message", appErr.Message)
	}
}

func TestLimiterIsolatesPoliciesAndKeys(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore())
	a := Policy{Name: "a", Max: 1, Window: time.Minute, Mode: FailOpen}
	b := Policy{Name: "b", Max: 1, Window: time.Minute, Mode: FailOpen}
	ctx := context.Background()

	if _, err := limiter.Check(ctx, a, "k"); err != nil {
		t.Fatalf("policy a first request: %v", err)
	}
	// Same key under a different policy counts separately.
	if _, err := limiter.Check(ctx, b, "k"); err != nil {
		t.Fatalf("policy b first request: %v", err)
	}
	// Different key under the exhausted policy counts separately.
	if _, err := limiter.Check(ctx, a, "other"); err != nil {
		t.Fatalf("policy a other key: %v", err)
	}
	if _, err := limiter.Check(ctx, a, "k"); err == nil {
		t.Fatal("policy a second request for same key was allowed")
	}
}

func TestLimiterFailOpen(t *testing.T) {
	limiter := NewLimiter(&brokenStore{err: errors.New("connection refused")})
	policy := GeneralPolicy(0, 0)

	before := time.Now()
	decision, err := limiter.Check(context.Background(), policy, "k")
	if err != nil {
		t.Fatalf("fail-open returned error: %v", err)
	}
	if !decision.Allowed {
		t.Error("fail-open denied the request")
	}
	if !decision.Degraded {
		t.Error("fail-open decision not marked degraded")
	}
	// The broken store returns a zero reset; the decision must not pass a
	// nonsense epoch into the X-RateLimit-Reset header.
	if decision.Reset.Before(before) || decision.Reset.After(before.Add(2*policy.Window)) {
		t.Errorf("degraded Reset = %v, want within the next window", decision.Reset)
	}
}

func TestLimiterFailClosed(t *testing.T) {
	limiter := NewLimiter(&brokenStore{err: errors.New("connection refused")})
	policy := AuthAttemptPolicy()

	decision, err := limiter.Check(context.Background(), policy, "k")
	if decision.Allowed {
		t.Error("fail-closed allowed the request")
	}
	if err == nil {
		t.Fatal("fail-closed returned no error")
	}
	// Store loss is reported as upstream unavailability, not quota exhaustion.
	if !apperror.IsKind(err, apperror.KindUpstream) {
		t.Errorf("fail-closed error kind = %v, want upstream", err)
	}
	if decision.Reset.IsZero() || decision.Reset.Before(time.Now().Add(-time.Second)) {
		t.Errorf("degraded Reset = %v, want within the next window", decision.Reset)
	}
}

func TestDefaultPolicies(t *testing.T) {
	tests := []struct {
		policy Policy
		max    int64
		window time.Duration
		mode   FailMode
	}{
		{GeneralPolicy(0, 0), 300, time.Minute, FailOpen},
		{GeneralPolicy(500, 2*time.Minute), 500, 2 * time.Minute, FailOpen},
		{ExpensivePolicy(), 30, time.Minute, FailOpen},
		{AuthAttemptPolicy(), 10, 5 * time.Minute, FailClosed},
		{WebhookPolicy(), 120, time.Minute, FailOpen},
	}
	for _, tt := range tests {
		t.Run(tt.policy.Name, func(t *testing.T) {
			if tt.policy.Max != tt.max {
				t.Errorf("Max = %d, want %d", tt.policy.Max, tt.max)
			}
			if tt.policy.Window != tt.window {
				t.Errorf("Window = %v, want %v", tt.policy.Window, tt.window)
			}
			if tt.policy.Mode != tt.mode {
				t.Errorf("Mode = %v, want %v", tt.policy.Mode, tt.mode)
			}
			if tt.policy.Message == "" {
				t.Error("Message is empty")
			}
		})
	}
}
