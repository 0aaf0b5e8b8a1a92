// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

// Package alerting forwards non-operational failures to an external error
// tracker. Delivery is throttled so an error storm (a dependency outage
// failing every request) produces a handful of reports, not thousands.
// Request bodies never reach the sink.
package alerting

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/nmoreau/vantage/internal/logging"
	"github.com/nmoreau/vantage/internal/metrics"
)

// Event is one failure report.
type Event struct {
	// Err is the underlying failure.
	Err error

	// Method and Path identify the request, when one exists.
	Method string
	Path   string

	// CorrelationID ties the report back to the request logs.
	CorrelationID string

	// Occurred is when the failure was observed.
	Occurred time.Time
}

// Sink delivers events to the external tracker.
type Sink interface {
	Deliver(ctx context.Context, event Event)
}

// LogSink writes events to the structured log. It is the default sink and
// the fallback when no tracker is configured.
type LogSink struct{}

// Deliver implements Sink.
func (LogSink) Deliver(ctx context.Context, event Event) {
	logging.Ctx(ctx).Error().
		Err(event.Err).
		Str("method", event.Method).
		Str("path", event.Path).
		Time("occurred", event.Occurred).
		Msg("Alert")
}

// DefaultRate allows a sustained report per 10 seconds with a burst of 5.
var DefaultRate = rate.Every(10 * time.Second)

// DefaultBurst is the token bucket size for the default limiter.
const DefaultBurst = 5

// Reporter throttles and forwards failure events.
type Reporter struct {
	sink    Sink
	limiter *rate.Limiter
}

// NewReporter wires a sink behind a throttle. A nil sink falls back to
// LogSink; a nil limiter gets the defaults.
func NewReporter(sink Sink, limiter *rate.Limiter) *Reporter {
	if sink == nil {
		sink = LogSink{}
	}
	if limiter == nil {
		limiter = rate.NewLimiter(DefaultRate, DefaultBurst)
	}
	return &Reporter{sink: sink, limiter: limiter}
}

// ReportError satisfies the api error handler's reporter seam.
func (r *Reporter) ReportError(ctx context.Context, err error, method, path string) {
	r.report(ctx, Event{
		Err:           err,
		Method:        method,
		Path:          path,
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		Occurred:      time.Now().UTC(),
	})
}

// ReportBackground reports a failure with no request attached. Shaped for
// lifecycle.WithReporter.
func (r *Reporter) ReportBackground(ctx context.Context, err error) {
	r.report(ctx, Event{Err: err, Occurred: time.Now().UTC()})
}

func (r *Reporter) report(ctx context.Context, event Event) {
	if !r.limiter.Allow() {
		metrics.AlertsThrottled.Inc()
		logging.Ctx(ctx).Debug().Err(event.Err).Msg("Alert throttled")
		return
	}
	metrics.AlertsReported.Inc()
	r.sink.Deliver(ctx, event)
}
