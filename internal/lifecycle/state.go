// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

// Package lifecycle owns the server's startup and shutdown state machine.
//
// The process moves Starting -> Ready -> Draining -> Stopped; a fatal fault
// moves Ready -> Crashed instead. Readiness probes and the drain sequence
// both key off this state, so a draining instance drops out of the load
// balancer while in-flight requests finish.
package lifecycle

// State is the server lifecycle phase.
type State int32

const (
	// StateStarting covers config load through listener bind.
	StateStarting State = iota

	// StateReady means the server accepts traffic.
	StateReady

	// StateDraining means shutdown has begun: no new traffic, in-flight
	// work finishing, drain hooks running in order.
	StateDraining

	// StateStopped is a completed graceful shutdown.
	StateStopped

	// StateCrashed is a fatal fault; the process exits non-zero.
	StateCrashed
)

// String returns the state name for logs and metrics.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}
