// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

// Package services wraps Vantage's long-running components as suture
// services.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nmoreau/vantage/internal/logging"
)

// HTTPServer is the subset of *http.Server the service needs. The interface
// keeps the wrapper testable with a fake server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// Drainer is notified before the listener closes. The lifecycle controller
// satisfies this; flipping to draining first makes the readiness probe fail
// so the load balancer stops routing while in-flight requests finish.
type Drainer interface {
	BeginDrain()
}

// HTTPServerService runs an HTTP server under supervision. ListenAndServe
// blocks, so it runs in a goroutine; the service waits on either a server
// error or context cancellation, and on cancellation drains gracefully.
type HTTPServerService struct {
	server          HTTPServer
	drainer         Drainer
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps a server. drainer may be nil when no lifecycle
// coordination is wanted (tests, standalone tools).
func NewHTTPServerService(server HTTPServer, drainer Drainer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		drainer:         drainer,
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve implements suture.Service.
//
// http.ErrServerClosed is the normal shutdown signal and maps to nil. Any
// other listen error is returned so the supervisor can restart the service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// Fresh context: the canceled one would abort the drain instantly.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		// Drop out of the load balancer before closing the listener.
		if h.drainer != nil {
			h.drainer.BeginDrain()
		}

		logging.Info().Dur("timeout", h.shutdownTimeout).Msg("HTTP server draining")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}

		<-errCh
		return ctx.Err()
	}
}

// String identifies the service in supervisor logs.
func (h *HTTPServerService) String() string {
	return "http-server"
}
