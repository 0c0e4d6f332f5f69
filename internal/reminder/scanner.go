// internal/reminder/scanner.go
package reminder

import (
	"context"
	"fmt"
	"time"

	"matchpoint-push/internal/common/config"
	"matchpoint-push/internal/common/logger"
	"matchpoint-push/internal/common/metrics"
	"matchpoint-push/internal/dispatch"
	"matchpoint-push/internal/models"
)

// ReminderStore claims due rows atomically: claiming a row flips its
// reminder_sent flag, so a row is handed to at most one scan.
type ReminderStore interface {
	ClaimDueReservations(ctx context.Context, from, to time.Time) ([]models.Reservation, error)
	ClaimDueParticipants(ctx context.Context, from, to time.Time) ([]models.ReservationParticipant, error)
}

// Sender is the dispatch entry point the scanner fans claimed rows into.
type Sender interface {
	Send(ctx context.Context, req dispatch.Request) (models.DispatchSummary, error)
}

// ScanResult reports how many reminder dispatches were attempted, split by
// row type.
type ScanResult struct {
	HostReminders        int `json:"host_reminders"`
	ParticipantReminders int `json:"participant_reminders"`
}

// Scanner computes the rolling reminder window and dispatches a reminder to
// each claimed reservation owner and participant. Each invocation is
// stateless; nothing persists between runs except the flags in the store.
type Scanner struct {
	store     ReminderStore
	sender    Sender
	leadTime  time.Duration
	tolerance time.Duration
	logger    logger.Logger
	now       func() time.Time
}

func NewScanner(cfg config.ReminderConfig, store ReminderStore, sender Sender, log logger.Logger) *Scanner {
	return &Scanner{
		store:     store,
		sender:    sender,
		leadTime:  time.Duration(cfg.LeadTime) * time.Minute,
		tolerance: time.Duration(cfg.Tolerance) * time.Minute,
		logger:    log.WithFields(map[string]interface{}{"component": "reminder-scanner"}),
		now:       time.Now,
	}
}

// Run executes one scan. Reservations starting leadTime from now, give or
// take tolerance, are claimed and their owners notified; then the same for
// participants who have not declined. Rows are processed strictly
// sequentially within each set, and a dispatch failure for one row never
// stops the remaining rows.
//
// A claim failure for a set is unrecoverable for this run: the rows stay
// unflagged and the next scan retries them while they remain inside the
// window.
func (s *Scanner) Run(ctx context.Context) (*ScanResult, error) {
	target := s.now().Add(s.leadTime)
	from := target.Add(-s.tolerance)
	to := target.Add(s.tolerance)

	s.logger.Info("reminder scan started", map[string]interface{}{
		"windowFrom": from.UTC().Format(time.RFC3339),
		"windowTo":   to.UTC().Format(time.RFC3339),
	})

	result := &ScanResult{}

	reservations, err := s.store.ClaimDueReservations(ctx, from, to)
	if err != nil {
		return nil, err
	}
	metrics.ReminderRowsScanned.WithLabelValues("reservation").Add(float64(len(reservations)))

	for _, res := range reservations {
		result.HostReminders++
		if err := s.remind(ctx, res.OwnerUserID, res.ID.String(), res.StartTime); err != nil {
			s.logger.Error("host reminder dispatch failed", map[string]interface{}{
				"reservationId": res.ID.String(),
				"userId":        res.OwnerUserID,
				"error":         err.Error(),
			})
		}
	}

	participants, err := s.store.ClaimDueParticipants(ctx, from, to)
	if err != nil {
		return nil, err
	}
	metrics.ReminderRowsScanned.WithLabelValues("participant").Add(float64(len(participants)))

	for _, p := range participants {
		result.ParticipantReminders++
		if err := s.remind(ctx, p.UserID, p.ReservationID.String(), p.StartTime); err != nil {
			s.logger.Error("participant reminder dispatch failed", map[string]interface{}{
				"participantId": p.ID.String(),
				"reservationId": p.ReservationID.String(),
				"userId":        p.UserID,
				"error":         err.Error(),
			})
		}
	}

	s.logger.Info("reminder scan finished", map[string]interface{}{
		"hostReminders":        result.HostReminders,
		"participantReminders": result.ParticipantReminders,
	})

	return result, nil
}

func (s *Scanner) remind(ctx context.Context, userID, reservationID string, startTime time.Time) error {
	_, err := s.sender.Send(ctx, dispatch.Request{
		UserID: userID,
		Title:  "Match starting soon",
		Body:   fmt.Sprintf("Your match starts at %s", startTime.UTC().Format("15:04")),
		Data: map[string]string{
			"type":           models.TypeMatchReminder,
			"reservation_id": reservationID,
		},
		Source: "reminder",
	})
	return err
}
