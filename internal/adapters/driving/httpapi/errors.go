package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

// errUnauthenticated is returned when no owner can be resolved.
var errUnauthenticated = errors.New("missing or unknown session")

// errorBody is the JSON error envelope.
type errorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// statusFor maps a domain error onto an HTTP status and a public message.
// Forbidden and not found share one response.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, "session expired"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden):
		return http.StatusNotFound, "document not found"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, domain.ErrCorruptInput),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrSchemaViolation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrEmptyInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrSearchUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	switch {
	case errors.Is(err, domain.ErrForbidden):
		logger.Debug("Owner mismatch reported as not found: %v", err)
	case status >= http.StatusInternalServerError:
		logger.Error("Request failed: %v", err)
	default:
		logger.Debug("Request rejected (%d): %v", status, err)
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorBody{Error: msg, Retryable: domain.IsRetryable(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
