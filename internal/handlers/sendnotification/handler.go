// internal/handlers/sendnotification/handler.go
package sendnotification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"matchpoint-push/internal/common/errors"
	"matchpoint-push/internal/common/logger"
	"matchpoint-push/internal/common/observability"
	"matchpoint-push/internal/dispatch"
	"matchpoint-push/internal/models"
)

// Sender is the dispatch entry point the handler hands validated requests to.
type Sender interface {
	Send(ctx context.Context, req dispatch.Request) (models.DispatchSummary, error)
}

type Handler struct {
	sender  Sender
	errors  *errors.ErrorHandler
	metrics *observability.Observability
	logger  logger.Logger
}

func NewHandler(sender Sender, errHandler *errors.ErrorHandler, m *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		sender:  sender,
		errors:  errHandler,
		metrics: m,
		logger:  log.WithFields(map[string]interface{}{"handler": "send-notification"}),
	}
}

// ServeHTTP handles POST {userId, title, body, data?}. The response is 200
// with the full dispatch summary for any well-formed request, including the
// zero-token case; only validation (400) and configuration or auth failures
// (500) break that shape.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.metrics.RecordRequest(r.Context(), "send_notification", "error")
		h.errors.WriteError(w, errors.NewValidationFailedError([]string{"body"}))
		return
	}

	if err := validateBody(raw); err != nil {
		h.metrics.RecordRequest(r.Context(), "send_notification", "invalid")
		h.errors.WriteError(w, err)
		return
	}

	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		h.metrics.RecordRequest(r.Context(), "send_notification", "invalid")
		h.errors.WriteError(w, errors.NewValidationFailedError([]string{"body"}))
		return
	}

	summary, err := h.sender.Send(r.Context(), dispatch.Request{
		UserID: input.UserID,
		Title:  input.Title,
		Body:   input.Body,
		Data:   input.Data,
		Source: "api",
	})
	if err != nil {
		h.metrics.RecordRequest(r.Context(), "send_notification", "error")
		h.errors.WriteError(w, err)
		return
	}

	h.metrics.RecordRequest(r.Context(), "send_notification", "ok")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(summary)
}
