package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/postbox/postbox/internal/service"
)

// handleServiceError maps service errors to HTTP responses.
// Unmapped errors are logged and reported as a generic 500.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, requestID string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", invalidInputMessage(err))
	case errors.Is(err, service.ErrDuplicateIdentity):
		writeError(w, http.StatusConflict, "DUPLICATE_IDENTITY", "email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	case errors.Is(err, service.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "NOT_AUTHENTICATED", "not authenticated")
	case errors.Is(err, service.ErrUnknownRecipient):
		writeError(w, http.StatusNotFound, "UNKNOWN_RECIPIENT", "recipient not found")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "message not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "not a participant of this message")
	default:
		logger.Error("internal_error",
			slog.String("error", err.Error()),
			slog.String("request_id", requestID),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
	}
}

// invalidInputMessage strips the sentinel prefix from a validation error,
// leaving the field-specific detail.
func invalidInputMessage(err error) string {
	msg := err.Error()
	if detail, ok := strings.CutPrefix(msg, service.ErrInvalidInput.Error()+": "); ok {
		return detail
	}
	return msg
}
