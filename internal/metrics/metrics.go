// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the request-lifecycle core:
// - API endpoint latency and throughput
// - Rate-limit policy decisions
// - Authentication outcomes
// - Server lifecycle state and drain progress
// - Identity-provider circuit breaker

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	APIPanicsRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_panics_recovered_total",
			Help: "Total number of handler panics recovered by the pipeline",
		},
	)

	// Rate Limit Metrics
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Total number of rate-limit decisions by policy",
		},
		[]string{"policy", "decision"}, // decision: "allow", "deny"
	)

	RateLimitStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_store_errors_total",
			Help: "Total number of rate-limit store failures",
		},
		[]string{"policy"},
	)

	// Authentication Metrics
	AuthOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_outcomes_total",
			Help: "Total number of authentication attempts by verifier and result",
		},
		[]string{"verifier", "result"}, // result: "success", "failure", "error"
	)

	AuthVerifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auth_verify_duration_seconds",
			Help:    "Credential verification duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"verifier"},
	)

	// Lifecycle Metrics
	LifecycleState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lifecycle_state",
			Help: "Current server lifecycle state (0=starting, 1=ready, 2=draining, 3=stopped, 4=crashed)",
		},
	)

	LifecycleDrainDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifecycle_drain_duration_seconds",
			Help:    "Duration of individual drain hooks in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"hook"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Alerting Metrics
	AlertsReported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_reported_total",
			Help: "Total number of error reports delivered to the alerting sink",
		},
	)

	AlertsThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_throttled_total",
			Help: "Total number of error reports dropped by the alert throttle",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAPIRequest records an API request completion
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAuthAttempt records a credential verification and its outcome
func RecordAuthAttempt(verifier, result string, duration time.Duration) {
	AuthOutcomes.WithLabelValues(verifier, result).Inc()
	AuthVerifyDuration.WithLabelValues(verifier).Observe(duration.Seconds())
}

// SetLifecycleState updates the lifecycle state gauge
func SetLifecycleState(state int) {
	LifecycleState.Set(float64(state))
}

// RecordDrainHook records the duration of a drain hook during shutdown
func RecordDrainHook(hook string, duration time.Duration) {
	LifecycleDrainDuration.WithLabelValues(hook).Observe(duration.Seconds())
}

// RecordBreakerTransition records a circuit breaker state change
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}
