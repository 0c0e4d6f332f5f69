// internal/store/reservations.go
package store

import (
	"context"
	"database/sql"
	"time"

	"matchpoint-push/internal/common/errors"
	"matchpoint-push/internal/common/logger"
	"matchpoint-push/internal/models"
)

// ReservationRepository selects reservations and participants that are due
// for a reminder. Selection and the reminder_sent flag write are one atomic
// conditional UPDATE, so two overlapping scans can never both claim the same
// row; the loser simply sees zero rows.
type ReservationRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewReservationRepository(db *sql.DB, log logger.Logger) *ReservationRepository {
	return &ReservationRepository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "reservation-store"}),
	}
}

// ClaimDueReservations marks and returns reservations whose start_time falls
// inside [from, to] (inclusive) and whose reminder has not been sent yet.
// Claimed rows never revert: a reservation returned here will not be
// returned by any later scan.
func (r *ReservationRepository) ClaimDueReservations(ctx context.Context, from, to time.Time) ([]models.Reservation, error) {
	query := `UPDATE reservations SET reminder_sent = TRUE
		WHERE start_time BETWEEN $1 AND $2 AND reminder_sent = FALSE
		RETURNING id, owner_user_id, start_time`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, errors.NewFlagWriteFailedError("claim due reservations", err)
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		res := models.Reservation{ReminderSent: true}
		if err := rows.Scan(&res.ID, &res.OwnerUserID, &res.StartTime); err != nil {
			return nil, errors.NewFlagWriteFailedError("claim due reservations", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewFlagWriteFailedError("claim due reservations", err)
	}

	return reservations, nil
}

// ClaimDueParticipants marks and returns participants of reservations
// starting inside [from, to] whose own reminder has not been sent and who
// have not declined. A participant's reminder state is independent of the
// owner's.
func (r *ReservationRepository) ClaimDueParticipants(ctx context.Context, from, to time.Time) ([]models.ReservationParticipant, error) {
	query := `UPDATE reservation_participants p SET reminder_sent = TRUE
		FROM reservations r
		WHERE r.id = p.reservation_id
			AND r.start_time BETWEEN $1 AND $2
			AND p.reminder_sent = FALSE
			AND p.status <> $3
		RETURNING p.id, p.reservation_id, p.user_id, p.status, r.start_time`

	rows, err := r.db.QueryContext(ctx, query, from, to, models.ParticipantStatusDeclined)
	if err != nil {
		return nil, errors.NewFlagWriteFailedError("claim due participants", err)
	}
	defer rows.Close()

	var participants []models.ReservationParticipant
	for rows.Next() {
		p := models.ReservationParticipant{ReminderSent: true}
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.UserID, &p.Status, &p.StartTime); err != nil {
			return nil, errors.NewFlagWriteFailedError("claim due participants", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewFlagWriteFailedError("claim due participants", err)
	}

	return participants, nil
}
