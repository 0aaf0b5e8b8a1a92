// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/nmoreau/vantage/internal/apperror"
	"github.com/nmoreau/vantage/internal/logging"
)

// Reporter receives unexpected errors for out-of-band alerting.
type Reporter interface {
	ReportError(ctx context.Context, err error, method, path string)
}

// ErrorHandler is the single place where errors become HTTP responses.
// Every middleware and handler funnels failures through RespondError, so
// status mapping, logging, and alerting happen exactly once per error.
type ErrorHandler struct {
	// exposeStack includes stack traces in internal-error responses.
	// Never enabled in production.
	exposeStack bool

	reporter Reporter
}

// NewErrorHandler builds the terminal error handler. reporter may be nil.
func NewErrorHandler(exposeStack bool, reporter Reporter) *ErrorHandler {
	return &ErrorHandler{exposeStack: exposeStack, reporter: reporter}
}

// RespondError normalizes err and writes the error envelope.
//
// Operational errors (validation failures, rate limits, missing resources)
// are expected traffic and log at warn. Non-operational errors are bugs or
// infrastructure faults: they log at error with the full cause chain and go
// to the alert reporter, while the client sees only the generic message.
func (h *ErrorHandler) RespondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.From(err)
	correlationID := logging.CorrelationIDFromContext(r.Context())

	if appErr.Operational {
		logging.Ctx(r.Context()).Warn().
			Str("code", appErr.Code).
			Int("status", appErr.HTTPStatus).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Err(appErr.Err).
			Msg(appErr.Message)
	} else {
		logging.Ctx(r.Context()).Error().
			Str("code", appErr.Code).
			Int("status", appErr.HTTPStatus).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Err(appErr.Err).
			Msg(appErr.Message)

		if h.reporter != nil {
			h.reporter.ReportError(r.Context(), appErr, r.Method, r.URL.Path)
		}
	}

	body := &ErrorBody{
		Code:          appErr.Code,
		Message:       appErr.Message,
		CorrelationID: correlationID,
		Details:       appErr.Details,
	}
	if h.exposeStack && !appErr.Operational {
		if appErr.Err != nil {
			body.Stack = fmt.Sprintf("%v\n%s", appErr.Err, debug.Stack())
		} else {
			body.Stack = string(debug.Stack())
		}
	}

	writeJSON(w, r, appErr.HTTPStatus, Response{
		Success: false,
		Error:   body,
		Meta:    &Meta{Timestamp: time.Now()},
	})
}

// NotFoundHandler is the catch-all for unmatched routes. The message names
// the method and path so clients can spot typos immediately.
func (h *ErrorHandler) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.RespondError(w, r, apperror.NotFound(
			fmt.Sprintf("No route for %s %s", r.Method, r.URL.Path)))
	}
}

// MethodNotAllowedHandler rejects known paths hit with the wrong method.
func (h *ErrorHandler) MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := apperror.New(apperror.KindValidation,
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path))
		err.HTTPStatus = http.StatusMethodNotAllowed
		err.Code = "METHOD_NOT_ALLOWED"
		h.RespondError(w, r, err)
	}
}
