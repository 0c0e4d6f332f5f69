// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorHandler translates application errors into HTTP responses with a
// consistent JSON shape.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// WriteError normalizes err to a StandardError, logs it, and writes the
// mapped HTTP status with an {error} body. Validation errors additionally
// carry the enumerated missing fields.
func (h *ErrorHandler) WriteError(w http.ResponseWriter, err error) {
	stdErr := h.normalizeError(err)

	h.logger.Error("request failed", map[string]interface{}{
		"errorCode": stdErr.Code,
		"message":   stdErr.Message,
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
	})

	body := map[string]interface{}{
		"error": stdErr.Message,
		"code":  stdErr.Code,
	}
	if stdErr.Details != "" {
		body["details"] = stdErr.Details
	}
	if fields, ok := stdErr.Metadata["missing_fields"]; ok {
		body["missing_fields"] = fields
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(stdErr.Code))
	_ = json.NewEncoder(w).Encode(body)
}

// HTTPStatus maps an error code to its HTTP response status.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	default:
		// Credential, auth, store and delivery failures are all server-side
		// conditions from the caller's point of view.
		return http.StatusInternalServerError
	}
}

// normalizeError ensures we always have a StandardError.
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
