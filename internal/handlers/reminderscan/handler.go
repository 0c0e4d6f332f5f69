// internal/handlers/reminderscan/handler.go
package reminderscan

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"matchpoint-push/internal/common/errors"
	"matchpoint-push/internal/common/logger"
	"matchpoint-push/internal/common/observability"
	"matchpoint-push/internal/reminder"
)

// Runner executes one reminder scan.
type Runner interface {
	Run(ctx context.Context) (*reminder.ScanResult, error)
}

type response struct {
	Success              bool `json:"success"`
	HostReminders        int  `json:"host_reminders"`
	ParticipantReminders int  `json:"participant_reminders"`
}

type Handler struct {
	runner  Runner
	errors  *errors.ErrorHandler
	metrics *observability.Observability
	logger  logger.Logger
}

func NewHandler(runner Runner, errHandler *errors.ErrorHandler, m *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		runner:  runner,
		errors:  errHandler,
		metrics: m,
		logger:  log.WithFields(map[string]interface{}{"handler": "reminder-scan"}),
	}
}

// ServeHTTP handles POST with no body: runs one scan and reports how many
// reminder dispatches were attempted per row type.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	result, err := h.runner.Run(r.Context())
	if err != nil {
		h.metrics.RecordRequest(r.Context(), "reminder_scan", "error")
		h.errors.WriteError(w, err)
		return
	}

	h.metrics.RecordRequest(r.Context(), "reminder_scan", "ok")
	h.metrics.RecordRequestDuration(r.Context(), "reminder_scan", time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response{
		Success:              true,
		HostReminders:        result.HostReminders,
		ParticipantReminders: result.ParticipantReminders,
	})
}
