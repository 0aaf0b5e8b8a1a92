// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

// Package api assembles the HTTP surface: the middleware pipeline, route
// groups, the standardized response envelope, and the terminal error
// handler.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/nmoreau/vantage/internal/logging"
)

// Response is the envelope wrapping every JSON response.
type Response struct {
	// Success indicates whether the request was successful
	Success bool `json:"success"`

	// Data contains the response payload (null on error)
	Data interface{} `json:"data,omitempty"`

	// Error contains error details (null on success)
	Error *ErrorBody `json:"error,omitempty"`

	// Meta contains optional metadata about the response
	Meta *Meta `json:"meta,omitempty"`
}

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// CorrelationID ties the response to the server-side log records
	CorrelationID string `json:"correlation_id,omitempty"`

	// Details carries structured context such as per-field validation
	// failures (optional)
	Details interface{} `json:"details,omitempty"`

	// Stack is included outside production only
	Stack string `json:"stack,omitempty"`
}

// Meta contains optional response metadata.
type Meta struct {
	// Timestamp is when the response was generated
	Timestamp time.Time `json:"timestamp"`

	// DurationMs is the request processing time in milliseconds
	DurationMs int64 `json:"duration_ms,omitempty"`

	// Pagination contains pagination info for list responses
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes a page of a list response.
type Pagination struct {
	Total   int64 `json:"total,omitempty"`
	Count   int   `json:"count"`
	Offset  int   `json:"offset,omitempty"`
	Limit   int   `json:"limit,omitempty"`
	HasMore bool  `json:"has_more"`
}

// Respond writes a success envelope with the given status and payload.
func Respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeJSON(w, r, status, Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{Timestamp: time.Now()},
	})
}

// RespondOK writes a 200 success envelope.
func RespondOK(w http.ResponseWriter, r *http.Request, data interface{}) {
	Respond(w, r, http.StatusOK, data)
}

// RespondCreated writes a 201 success envelope.
func RespondCreated(w http.ResponseWriter, r *http.Request, data interface{}) {
	Respond(w, r, http.StatusCreated, data)
}

// RespondNoContent writes a bare 204.
func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// RespondPage writes a 200 success envelope with pagination metadata.
func RespondPage(w http.ResponseWriter, r *http.Request, data interface{}, page *Pagination) {
	writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{Timestamp: time.Now(), Pagination: page},
	})
}

// writeJSON encodes the envelope. An encoding failure at this point cannot
// be reported to the client anymore, only logged.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode JSON response")
	}
}
