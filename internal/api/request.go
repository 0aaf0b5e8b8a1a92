// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/nmoreau/vantage/internal/apperror"
	"github.com/nmoreau/vantage/internal/validation"
)

// DecodeJSON decodes the request body into v and validates it.
//
// Failure modes map onto distinct error kinds: a body the body-limit
// middleware truncated becomes a payload-too-large error, malformed JSON a
// parse error, and a well-formed body failing struct validation a
// validation error carrying every failed field in Details.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return apperror.Parse("Request body is required")
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return apperror.New(apperror.KindPayloadTooLarge, "Request body too large")
		}
		if errors.Is(err, io.EOF) {
			return apperror.Parse("Request body is required")
		}
		return apperror.Parse("Request body is not valid JSON").WithCause(err)
	}

	if verr := validation.ValidateStruct(v); verr != nil {
		return apperror.Validation("Request validation failed", verr.Fields)
	}
	return nil
}
