// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

// Package apperror defines the closed error taxonomy used across the API.
//
// Every error that reaches the terminal error handler is normalized into an
// *AppError before a response is written. Handlers and middleware never format
// error responses themselves; they return an *AppError (or any error, which
// the terminal handler classifies as Internal).
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind discriminates the operational error variants.
type Kind int

const (
	// KindInternal is the default for anything unrecognized (operational=false).
	KindInternal Kind = iota

	// KindValidation is a request that failed field-level validation.
	KindValidation

	// KindParse is a request body that could not be decoded at all.
	KindParse

	// KindUnauthenticated is a missing, malformed, or unverifiable credential.
	KindUnauthenticated

	// KindForbidden is an authenticated principal lacking the required role.
	KindForbidden

	// KindOriginForbidden is a request from an origin outside the allowlist.
	KindOriginForbidden

	// KindNotFound is an unknown resource or unmatched route.
	KindNotFound

	// KindConflict is a state conflict (duplicate create, stale update).
	KindConflict

	// KindPaymentRequired is a billing-gated operation without entitlement.
	KindPaymentRequired

	// KindRateLimited is a request denied by a rate-limit policy.
	KindRateLimited

	// KindPayloadTooLarge is a request body over the configured size limit.
	KindPayloadTooLarge

	// KindUpstream is an unavailable external dependency (store, provider).
	KindUpstream
)

// kindInfo carries the fixed status/code pair for a Kind.
type kindInfo struct {
	status int
	code   string
}

var kinds = map[Kind]kindInfo{
	KindInternal:        {http.StatusInternalServerError, "INTERNAL_ERROR"},
	KindValidation:      {http.StatusBadRequest, "VALIDATION_ERROR"},
	KindParse:           {http.StatusBadRequest, "PARSE_ERROR"},
	KindUnauthenticated: {http.StatusUnauthorized, "UNAUTHORIZED"},
	KindForbidden:       {http.StatusForbidden, "FORBIDDEN"},
	KindOriginForbidden: {http.StatusForbidden, "ORIGIN_FORBIDDEN"},
	KindNotFound:        {http.StatusNotFound, "NOT_FOUND"},
	KindConflict:        {http.StatusConflict, "CONFLICT"},
	KindPaymentRequired: {http.StatusPaymentRequired, "PAYMENT_REQUIRED"},
	KindRateLimited:     {http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
	KindPayloadTooLarge: {http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
	KindUpstream:        {http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
}

// String returns the stable machine code for the kind.
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.code
	}
	return kinds[KindInternal].code
}

// AppError is the single error value used for all operational failures.
//
// Message is safe to expose to clients. Err (if set) is the underlying cause
// and is only ever logged, never serialized.
type AppError struct {
	Kind        Kind
	HTTPStatus  int
	Code        string
	Message     string
	Details     interface{}
	Operational bool
	Err         error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error carrying structured details
// (e.g. field-level validation failures).
func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithCause returns a copy of the error wrapping an underlying cause.
// The cause is logged by the terminal handler but never sent to clients.
func (e *AppError) WithCause(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

// New constructs an AppError of the given kind with a client-safe message.
// All kinds except KindInternal are operational.
func New(kind Kind, message string) *AppError {
	info, ok := kinds[kind]
	if !ok {
		kind = KindInternal
		info = kinds[KindInternal]
	}
	if message == "" {
		message = defaultMessage(kind)
	}
	return &AppError{
		Kind:        kind,
		HTTPStatus:  info.status,
		Code:        info.code,
		Message:     message,
		Operational: kind != KindInternal,
	}
}

// defaultMessage provides a generic client-safe message per kind.
func defaultMessage(kind Kind) string {
	switch kind {
	case KindValidation:
		return "Request validation failed"
	case KindParse:
		return "Request body could not be parsed"
	case KindUnauthenticated:
		return "Authentication required"
	case KindForbidden:
		return "Insufficient permissions"
	case KindOriginForbidden:
		return "Origin not allowed"
	case KindNotFound:
		return "Resource not found"
	case KindConflict:
		return "Resource conflict"
	case KindPaymentRequired:
		return "Payment required"
	case KindRateLimited:
		return "Too many requests"
	case KindPayloadTooLarge:
		return "Request body too large"
	case KindUpstream:
		return "Service temporarily unavailable"
	default:
		return "An internal error occurred"
	}
}

// Convenience constructors for the common kinds.

// Validation returns a 400 VALIDATION_ERROR carrying field-level details.
func Validation(message string, details interface{}) *AppError {
	return New(KindValidation, message).WithDetails(details)
}

// Parse returns a 400 PARSE_ERROR for undecodable request bodies.
func Parse(message string) *AppError {
	return New(KindParse, message)
}

// Unauthenticated returns a 401 UNAUTHORIZED.
func Unauthenticated(message string) *AppError {
	return New(KindUnauthenticated, message)
}

// Forbidden returns a 403 FORBIDDEN.
func Forbidden(message string) *AppError {
	return New(KindForbidden, message)
}

// NotFound returns a 404 NOT_FOUND.
func NotFound(message string) *AppError {
	return New(KindNotFound, message)
}

// Conflict returns a 409 CONFLICT.
func Conflict(message string) *AppError {
	return New(KindConflict, message)
}

// RateLimited returns a 429 RATE_LIMIT_EXCEEDED.
func RateLimited(message string) *AppError {
	return New(KindRateLimited, message)
}

// Upstream returns a 503 SERVICE_UNAVAILABLE wrapping the dependency error.
func Upstream(message string, err error) *AppError {
	return New(KindUpstream, message).WithCause(err)
}

// Internal returns a 500 INTERNAL_ERROR (operational=false) wrapping the cause.
func Internal(err error) *AppError {
	return New(KindInternal, "").WithCause(err)
}

// From normalizes any error into an *AppError.
//
// An *AppError anywhere in the chain is returned as-is. Everything else is a
// programming defect or unexpected collaborator failure and maps to
// KindInternal with operational=false.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err normalizes to the given kind.
func IsKind(err error, kind Kind) bool {
	appErr := From(err)
	return appErr != nil && appErr.Kind == kind
}
