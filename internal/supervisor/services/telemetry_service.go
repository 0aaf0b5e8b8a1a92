// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package services

import (
	"context"
	"runtime"
	"time"

	"github.com/nmoreau/vantage/internal/metrics"
)

// TelemetryService publishes the build-info gauge and keeps the uptime
// gauge current. It lives in the background supervisor layer.
type TelemetryService struct {
	version  string
	start    time.Time
	interval time.Duration
}

// NewTelemetryService creates the telemetry updater.
func NewTelemetryService(version string) *TelemetryService {
	return &TelemetryService{
		version:  version,
		start:    time.Now(),
		interval: 15 * time.Second,
	}
}

// Serve implements suture.Service.
func (t *TelemetryService) Serve(ctx context.Context) error {
	metrics.AppInfo.WithLabelValues(t.version, runtime.Version()).Set(1)
	metrics.AppUptime.Set(time.Since(t.start).Seconds())

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			metrics.AppUptime.Set(time.Since(t.start).Seconds())
		}
	}
}

// String identifies the service in supervisor logs.
func (t *TelemetryService) String() string {
	return "telemetry"
}
