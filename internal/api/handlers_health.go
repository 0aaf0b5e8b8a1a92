// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package api

import (
	"context"
	"net/http"
	"time"
)

// Checker probes one dependency for the health endpoints.
type Checker interface {
	// Name identifies the dependency in the health report.
	Name() string

	// Critical marks dependencies whose loss makes the service unable to
	// do useful work. Non-critical dependencies degrade features only.
	Critical() bool

	// Check probes the dependency. nil means healthy.
	Check(ctx context.Context) error
}

// DependencyCheck adapts a probe function to the Checker interface.
type DependencyCheck struct {
	DepName    string
	IsCritical bool
	Probe      func(ctx context.Context) error
}

func (c DependencyCheck) Name() string                    { return c.DepName }
func (c DependencyCheck) Critical() bool                  { return c.IsCritical }
func (c DependencyCheck) Check(ctx context.Context) error { return c.Probe(ctx) }

// DependencyStatus is one dependency's entry in the health report.
type DependencyStatus struct {
	Status    string  `json:"status"` // "up" or "down"
	LatencyMs float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
	Critical  bool    `json:"critical"`
}

// HealthReport is the aggregate health payload.
type HealthReport struct {
	Status        string                      `json:"status"` // "healthy", "degraded", "unhealthy"
	Version       string                      `json:"version"`
	UptimeSeconds float64                     `json:"uptime_seconds"`
	Dependencies  map[string]DependencyStatus `json:"dependencies"`
}

// HealthHandler serves the liveness, readiness, and aggregate health
// endpoints.
type HealthHandler struct {
	version   string
	startTime time.Time

	// ready reports whether the server is accepting traffic. Wired to the
	// lifecycle state so readiness flips off the moment draining starts.
	ready func() bool

	checks []Checker

	// checkTimeout bounds each dependency probe.
	checkTimeout time.Duration
}

// NewHealthHandler builds the handler. ready may be nil, in which case the
// service reports ready whenever its critical dependencies are up.
func NewHealthHandler(version string, ready func() bool, checks ...Checker) *HealthHandler {
	return &HealthHandler{
		version:      version,
		startTime:    time.Now(),
		ready:        ready,
		checks:       checks,
		checkTimeout: 2 * time.Second,
	}
}

// runChecks probes every dependency and reports whether any critical one is
// down.
func (h *HealthHandler) runChecks(ctx context.Context) (map[string]DependencyStatus, bool) {
	deps := make(map[string]DependencyStatus, len(h.checks))
	criticalDown := false

	for _, check := range h.checks {
		probeCtx, cancel := context.WithTimeout(ctx, h.checkTimeout)
		start := time.Now()
		err := check.Check(probeCtx)
		cancel()

		status := DependencyStatus{
			Status:    "up",
			LatencyMs: float64(time.Since(start).Microseconds()) / 1000,
			Critical:  check.Critical(),
		}
		if err != nil {
			status.Status = "down"
			status.Error = err.Error()
			if check.Critical() {
				criticalDown = true
			}
		}
		deps[check.Name()] = status
	}
	return deps, criticalDown
}

// Health returns the aggregate report. A down non-critical dependency
// degrades the report but keeps the status code at 200; only a critical
// outage turns the endpoint 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	deps, criticalDown := h.runChecks(r.Context())

	report := HealthReport{
		Status:        "healthy",
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Dependencies:  deps,
	}
	for _, dep := range deps {
		if dep.Status == "down" {
			report.Status = "degraded"
			break
		}
	}

	status := http.StatusOK
	if criticalDown {
		report.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	Respond(w, r, status, report)
}

// Live is the liveness probe: 200 whenever the process can serve it.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	RespondOK(w, r, map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// Ready is the readiness probe: 200 only when the lifecycle says the server
// accepts traffic and no critical dependency is down. Load balancers use
// this to pull a draining instance out of rotation.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	_, criticalDown := h.runChecks(r.Context())

	accepting := h.ready == nil || h.ready()
	ready := accepting && !criticalDown

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	Respond(w, r, status, map[string]interface{}{
		"ready":          ready,
		"accepting":      accepting,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}
