package reminder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchpoint-push/internal/common/config"
	"matchpoint-push/internal/common/errors"
	"matchpoint-push/internal/common/logger"
	"matchpoint-push/internal/dispatch"
	"matchpoint-push/internal/models"
)

type fakeStore struct {
	reservations    []models.Reservation
	participants    []models.ReservationParticipant
	reservationsErr error
	participantsErr error

	reservationWindows [][2]time.Time
	participantWindows [][2]time.Time
}

func (f *fakeStore) ClaimDueReservations(ctx context.Context, from, to time.Time) ([]models.Reservation, error) {
	f.reservationWindows = append(f.reservationWindows, [2]time.Time{from, to})
	return f.reservations, f.reservationsErr
}

func (f *fakeStore) ClaimDueParticipants(ctx context.Context, from, to time.Time) ([]models.ReservationParticipant, error) {
	f.participantWindows = append(f.participantWindows, [2]time.Time{from, to})
	return f.participants, f.participantsErr
}

type fakeSender struct {
	requests []dispatch.Request
	errFor   map[string]error // keyed by UserID
}

func (f *fakeSender) Send(ctx context.Context, req dispatch.Request) (models.DispatchSummary, error) {
	f.requests = append(f.requests, req)
	if err := f.errFor[req.UserID]; err != nil {
		return models.DispatchSummary{}, err
	}
	return models.DispatchSummary{Success: true, Sent: 1, Total: 1}, nil
}

func newTestScanner(t *testing.T, store *fakeStore, sender *fakeSender, now time.Time) *Scanner {
	t.Helper()

	cfg := config.ReminderConfig{LeadTime: 240, Tolerance: 10}
	s := NewScanner(cfg, store, sender, logger.NewTestLogger(t))
	s.now = func() time.Time { return now }
	return s
}

func TestRun_WindowGeometry(t *testing.T) {
	now := time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)
	store := &fakeStore{}
	scanner := newTestScanner(t, store, &fakeSender{}, now)

	result, err := scanner.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.HostReminders)
	assert.Zero(t, result.ParticipantReminders)

	// target = now + 4h, window = [target - 10m, target + 10m]
	require.Len(t, store.reservationWindows, 1)
	assert.Equal(t, now.Add(3*time.Hour+50*time.Minute), store.reservationWindows[0][0])
	assert.Equal(t, now.Add(4*time.Hour+10*time.Minute), store.reservationWindows[0][1])

	require.Len(t, store.participantWindows, 1)
	assert.Equal(t, store.reservationWindows[0], store.participantWindows[0])
}

func TestRun_DispatchesHostsAndParticipants(t *testing.T) {
	now := time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)
	start := now.Add(4 * time.Hour)
	resID := uuid.New()

	store := &fakeStore{
		reservations: []models.Reservation{
			{ID: resID, OwnerUserID: "owner-1", StartTime: start, ReminderSent: true},
		},
		participants: []models.ReservationParticipant{
			{ID: uuid.New(), ReservationID: resID, UserID: "player-2", Status: models.ParticipantStatusAccepted, StartTime: start, ReminderSent: true},
			{ID: uuid.New(), ReservationID: resID, UserID: "player-3", Status: models.ParticipantStatusPending, StartTime: start, ReminderSent: true},
		},
	}
	sender := &fakeSender{}
	scanner := newTestScanner(t, store, sender, now)

	result, err := scanner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.HostReminders)
	assert.Equal(t, 2, result.ParticipantReminders)

	require.Len(t, sender.requests, 3)
	hostReq := sender.requests[0]
	assert.Equal(t, "owner-1", hostReq.UserID)
	assert.Equal(t, "Match starting soon", hostReq.Title)
	assert.Equal(t, "Your match starts at 18:00", hostReq.Body)
	assert.Equal(t, models.TypeMatchReminder, hostReq.Data["type"])
	assert.Equal(t, resID.String(), hostReq.Data["reservation_id"])
	assert.Equal(t, "reminder", hostReq.Source)

	assert.Equal(t, "player-2", sender.requests[1].UserID)
	assert.Equal(t, "player-3", sender.requests[2].UserID)
}

func TestRun_OneFailingDispatchDoesNotStopTheRest(t *testing.T) {
	now := time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)
	start := now.Add(4 * time.Hour)
	resID := uuid.New()

	store := &fakeStore{
		reservations: []models.Reservation{
			{ID: uuid.New(), OwnerUserID: "owner-broken", StartTime: start},
			{ID: uuid.New(), OwnerUserID: "owner-2", StartTime: start},
		},
		participants: []models.ReservationParticipant{
			{ID: uuid.New(), ReservationID: resID, UserID: "player-2", StartTime: start},
		},
	}
	sender := &fakeSender{errFor: map[string]error{
		"owner-broken": errors.NewTokenExchangeFailedError("invalid_grant"),
	}}
	scanner := newTestScanner(t, store, sender, now)

	result, err := scanner.Run(context.Background())
	require.NoError(t, err)

	// The failed row still counts as attempted.
	assert.Equal(t, 2, result.HostReminders)
	assert.Equal(t, 1, result.ParticipantReminders)
	require.Len(t, sender.requests, 3)
}

func TestRun_ClaimFailureAbortsTheScan(t *testing.T) {
	now := time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)
	store := &fakeStore{
		reservationsErr: errors.NewFlagWriteFailedError("claim due reservations", fmt.Errorf("connection reset")),
	}
	sender := &fakeSender{}
	scanner := newTestScanner(t, store, sender, now)

	_, err := scanner.Run(context.Background())
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeFlagWriteFailed, stdErr.Code)
	assert.Empty(t, sender.requests)
	assert.Empty(t, store.participantWindows)
}

func TestRun_NoDeviceTokensIsNotAFailure(t *testing.T) {
	now := time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)
	start := now.Add(4 * time.Hour)

	store := &fakeStore{
		reservations: []models.Reservation{
			{ID: uuid.New(), OwnerUserID: "owner-no-devices", StartTime: start},
		},
	}
	// The dispatcher reports zero tokens as a summary, not an error; the
	// scanner counts the row as attempted either way.
	sender := &fakeSender{}
	scanner := newTestScanner(t, store, sender, now)

	result, err := scanner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.HostReminders)
}
