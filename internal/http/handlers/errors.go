// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package). These codes provide clients with a stable,
// machine-readable error taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, not_found) mirror common HTTP status
//     semantics to aid interoperability.
//   - Domain-specific codes (e.g., validation_failed, send_failed) are reserved for
//     business logic errors that cannot be conveyed by status alone.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "validation_failed",
//	  "message": "Please provide a valid email address",
//	  "fields": [{"field": "email", "message": "Please provide a valid email address"}]
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-portfolio-backend/internal/services"
)

const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeRateLimited = "too_many_requests"
	ErrCodeInternal    = "internal_error"
	ErrCodeUnavailable = "service_unavailable"

	// Domain-specific:
	ErrCodeValidation         = "validation_failed"
	ErrCodeSendFailed         = "send_failed"
	ErrCodeListFailed         = "list_failed"
	ErrCodeMailboxNotReady    = "mailbox_not_configured"
	ErrCodeMailboxDisconnect  = "mailbox_not_connected"
	ErrCodeAuthorizeFailed    = "authorize_failed"
	ErrCodeSearchFailed       = "search_failed"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
	ErrCodeIdempotencyInvalid = "bad_idempotency_key"
)

// failService maps a service error onto the envelope. Storage detail is
// logged by fail and never echoed to the client.
func failService(c *gin.Context, err error) {
	var verr *services.ValidationError
	var serr *services.StorageError

	switch {
	case errors.As(err, &verr):
		failValidation(c, verr)
	case errors.Is(err, services.ErrContactNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "contact not found")
	case errors.Is(err, services.ErrEmptyReply), errors.Is(err, services.ErrReplyTooLong):
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, services.ErrSendFailed):
		fail(c, http.StatusBadGateway, ErrCodeSendFailed, "failed to send reply email")
	case errors.As(err, &serr):
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "storage error")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
