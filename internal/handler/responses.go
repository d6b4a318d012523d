package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/quorix-labs/botlink/internal/domain"
	"github.com/quorix-labs/botlink/internal/logger"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error      string `json:"error"`
	Reason     string `json:"reason,omitempty"`
	RetryAfter int    `json:"retry_after_s,omitempty"`
}

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Encode through a pooled buffer to reduce allocations
	buf := getBuffer()
	defer putBuffer(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
		return
	}

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write response buffer", "error", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondServiceError logs the failure and translates it for the caller.
func respondServiceError(w http.ResponseWriter, r *http.Request, opName string, err error) {
	logger.FromContext(r.Context()).Warn(opName, "error", err)

	if wait, ok := domain.RetryAfter(err); ok {
		seconds := int(wait.Seconds())
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		respondJSON(w, http.StatusTooManyRequests, ErrorResponse{
			Error:      ErrMsgRateLimitedError,
			RetryAfter: seconds,
		})
		return
	}

	var authErr *domain.AuthCodeError
	if errors.As(err, &authErr) {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  authCodeMessage(authErr.Reason),
			Reason: authErr.Reason,
		})
		return
	}

	status, msg := mapServiceErrorToUserMessage(err)
	respondError(w, status, msg)
}

func authCodeMessage(reason string) string {
	switch reason {
	case domain.AuthCodeReasonInvalid:
		return ErrMsgCodeInvalidError
	case domain.AuthCodeReasonExpired:
		return ErrMsgCodeExpiredError
	case domain.AuthCodeReasonPasswordRequired:
		return ErrMsgPasswordRequiredError
	case domain.AuthCodeReasonPasswordInvalid:
		return ErrMsgPasswordInvalidError
	case domain.AuthCodeReasonBadPhone:
		return ErrMsgBadPhoneError
	default:
		return ErrMsgInvalidRequestSummary
	}
}

// mapServiceErrorToUserMessage maps domain errors to user-friendly HTTP responses.
// Internal details never reach the caller.
func mapServiceErrorToUserMessage(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, ErrMsgUnknownError
	}

	switch {
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, ErrMsgAccessDeniedError
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrMsgNotFoundError
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, ErrMsgConflictError
	case errors.Is(err, domain.ErrUnauthorizedSession):
		return http.StatusConflict, ErrMsgSessionRevokedError
	case errors.Is(err, domain.ErrExternalUnavailable):
		return http.StatusBadGateway, ErrMsgUnavailableError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrMsgTimeoutError
	}

	return http.StatusInternalServerError, ErrMsgGenericServerError
}
