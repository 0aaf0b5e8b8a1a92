// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

// Package ratelimit implements distributed fixed-window rate limiting.
//
// Counters live in a shared store (Redis in distributed deployments, an
// in-process store otherwise) keyed by policy name, window id, and a derived
// request key: the principal ID for authenticated requests, the network
// origin otherwise. Policies attached to the same route compose with AND —
// a request subject to two policies must pass both.
package ratelimit

import (
	"time"
)

// FailMode controls limiter behavior when the shared store is unreachable.
type FailMode int

const (
	// FailOpen allows the request when the store is unreachable.
	// Used for general traffic policies to preserve availability.
	FailOpen FailMode = iota

	// FailClosed denies the request when the store is unreachable.
	// Used for the authentication-attempt policy to preserve the
	// brute-force defense.
	FailClosed
)

// Policy is a named, immutable rate-limit configuration. Policies are
// constructed once at startup and never mutated.
type Policy struct {
	// Name identifies the policy and prefixes every counter key.
	Name string

	// Max is the number of requests allowed per window.
	Max int64

	// Window is the fixed counting window duration.
	Window time.Duration

	// Mode is the documented behavior when the store is unreachable.
	Mode FailMode

	// Message is the client-facing message on denial.
	Message string
}

// Default policy names.
const (
	PolicyGeneral     = "general"
	PolicyExpensive   = "expensive"
	PolicyAuthAttempt = "authattempt"
	PolicyWebhook     = "webhook"
)

// GeneralPolicy covers all API traffic. Fail-open: losing the store must not
// take down read traffic.
func GeneralPolicy(maxReqs int64, window time.Duration) Policy {
	if maxReqs <= 0 {
		maxReqs = 300
	}
	if window <= 0 {
		window = time.Minute
	}
	return Policy{
		Name:    PolicyGeneral,
		Max:     maxReqs,
		Window:  window,
		Mode:    FailOpen,
		Message: "Too many requests, please slow down",
	}
}

// ExpensivePolicy covers resource-intensive operations (exports, AI
// generation enqueues). Fail-open.
func ExpensivePolicy() Policy {
	return Policy{
		Name:    PolicyExpensive,
		Max:     30,
		Window:  time.Minute,
		Mode:    FailOpen,
		Message: "Too many expensive operations, please try again later",
	}
}

// AuthAttemptPolicy covers authentication endpoints. Fail-closed: an
// unreachable store must not open a brute-force window.
func AuthAttemptPolicy() Policy {
	return Policy{
		Name:    PolicyAuthAttempt,
		Max:     10,
		Window:  5 * time.Minute,
		Mode:    FailClosed,
		Message: "Too many authentication attempts, please try again later",
	}
}

// WebhookPolicy covers inbound webhook receivers. Fail-open: dropping
// provider callbacks is worse than briefly unmetered delivery.
func WebhookPolicy() Policy {
	return Policy{
		Name:    PolicyWebhook,
		Max:     120,
		Window:  time.Minute,
		Mode:    FailOpen,
		Message: "Webhook delivery rate exceeded",
	}
}
