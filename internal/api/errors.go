// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/bookshelf/internal/catalog"
	"github.com/tomtom215/bookshelf/internal/logging"
	"github.com/tomtom215/bookshelf/internal/metrics"
	"github.com/tomtom215/bookshelf/internal/recommend"
	"github.com/tomtom215/bookshelf/internal/search"
	"github.com/tomtom215/bookshelf/internal/snapshot"
	"github.com/tomtom215/bookshelf/internal/validation"
)

// Error codes for API responses.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeBookNotFound     = "BOOK_NOT_FOUND"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeInvalidQuery     = "INVALID_QUERY"
	CodeTimeout          = "TIMEOUT"
	CodeCancelled        = "CANCELLED"
	CodeNotReady         = "NOT_READY"
	CodeValidationFailed = validation.CodeValidationFailed
	CodeTooManyRequests  = "TOO_MANY_REQUESTS"
	CodeInternalError    = "INTERNAL_ERROR"
)

// StatusClientClosedRequest is the non-standard status for a request the
// client abandoned before the response was ready.
const StatusClientClosedRequest = 499

// classifyError maps a domain error to its HTTP status, code, and the
// message shown to the client. Internal details never reach the message.
func classifyError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, snapshot.ErrNotReady):
		return http.StatusServiceUnavailable, CodeNotReady, "The book catalog is still loading. Please try again shortly."
	case errors.Is(err, recommend.ErrBookNotFound):
		return http.StatusNotFound, CodeBookNotFound, "Book not found in our database. Please check the spelling or try a different book."
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, CodeNotFound, "Not found."
	case errors.Is(err, recommend.ErrInsufficientData):
		return http.StatusUnprocessableEntity, CodeInsufficientData, "Not enough ratings to recommend books similar to this one."
	case errors.Is(err, search.ErrInvalidQuery), errors.Is(err, recommend.ErrInvalidQuery):
		return http.StatusBadRequest, CodeInvalidQuery, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout, "The request took too long. Please try again."
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, CodeCancelled, "The request was cancelled."
	default:
		return http.StatusInternalServerError, CodeInternalError, "An internal error occurred."
	}
}

// respondError logs err, counts it, and writes the mapped error response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classifyError(err)
	respondErrorMessage(w, r, status, code, message, err)
}

// respondErrorMessage writes an error response with an explicit message.
// err is logged when non-nil; 5xx errors log at error level.
func respondErrorMessage(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	metrics.APIErrorsTotal.WithLabelValues(code).Inc()

	if err != nil {
		event := logging.Ctx(r.Context()).Debug()
		if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
			event = logging.Ctx(r.Context()).Error()
		}
		event.Err(err).
			Str("code", code).
			Int("status", status).
			Str("path", r.URL.Path).
			Msg("API error")
	}

	writeError(w, r, status, code, message)
}

// respondValidationError writes a 400 with the failed fields.
func respondValidationError(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	metrics.APIErrorsTotal.WithLabelValues(apiErr.Code).Inc()
	writeErrorWithFields(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Fields)
}
