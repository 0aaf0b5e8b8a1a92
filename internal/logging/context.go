// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package logging

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// contextKey is a private type for logging context keys.
type contextKey string

const (
	// correlationIDKey is the context key for correlation IDs.
	correlationIDKey contextKey = "correlation_id"

	// principalIDKey is the context key for the authenticated principal ID.
	principalIDKey contextKey = "principal_id"

	// principalSlotKey is the context key for the write-through slot
	// installed by WithPrincipalTracking.
	principalSlotKey contextKey = "principal_slot"
)

// principalSlot is a mutable cell shared between the outer pipeline and the
// derived contexts the auth gate creates further down the chain.
type principalSlot struct {
	mu sync.Mutex
	id string
}

func (s *principalSlot) set(id string) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

func (s *principalSlot) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// WithPrincipalTracking installs a slot that later calls to
// ContextWithPrincipalID write through, so stages that run before the auth
// gate (the request logger) still see the principal ID the gate attaches on
// a derived context.
func WithPrincipalTracking(ctx context.Context) context.Context {
	return context.WithValue(ctx, principalSlotKey, &principalSlot{})
}

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.New().String()
}

// ValidCorrelationID reports whether an inbound correlation ID is acceptable
// for propagation: non-empty, bounded length, and limited to characters that
// are safe in headers and log output.
func ValidCorrelationID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}
	return true
}

// ContextWithCorrelationID returns a new context carrying the correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext retrieves the correlation ID from context.
// Returns empty string if not present.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithPrincipalID returns a new context carrying the principal ID.
// Set once by the authentication gate; read by the request logger. If a
// tracking slot is present the ID is also written through to it.
func ContextWithPrincipalID(ctx context.Context, id string) context.Context {
	if slot, ok := ctx.Value(principalSlotKey).(*principalSlot); ok {
		slot.set(id)
	}
	return context.WithValue(ctx, principalIDKey, id)
}

// PrincipalIDFromContext retrieves the principal ID from context.
// Returns empty string on public routes or before the auth gate has run.
func PrincipalIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(principalIDKey).(string); ok {
		return id
	}
	if slot, ok := ctx.Value(principalSlotKey).(*principalSlot); ok {
		return slot.get()
	}
	return ""
}

// Ctx returns a logger with the context's correlation ID and principal ID
// automatically attached. This is the recommended way to log inside handlers
// and middleware.
//
//	logging.Ctx(ctx).Info().Msg("Processing request")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := With()

	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		logCtx = logCtx.Str("correlation_id", correlationID)
	}
	if principalID := PrincipalIDFromContext(ctx); principalID != "" {
		logCtx = logCtx.Str("principal_id", principalID)
	}

	logger := logCtx.Logger()
	return &logger
}
