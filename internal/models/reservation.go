// internal/models/reservation.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Reservation is a booked match slot. Only ReminderSent is ever written by
// this service; everything else belongs to the booking flow.
type Reservation struct {
	ID           uuid.UUID `json:"id"`
	OwnerUserID  string    `json:"owner_user_id"`
	StartTime    time.Time `json:"start_time"`
	ReminderSent bool      `json:"reminder_sent"`
}

// ReservationParticipant is a player invited to (or joined into) a
// reservation. A declined participant is terminal and is never reminded.
type ReservationParticipant struct {
	ID            uuid.UUID `json:"id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"`
	ReminderSent  bool      `json:"reminder_sent"`
	StartTime     time.Time `json:"start_time"` // denormalized from the parent reservation
}

// Participant statuses
const (
	ParticipantStatusPending  = "pending"
	ParticipantStatusAccepted = "accepted"
	ParticipantStatusDeclined = "declined"
)
