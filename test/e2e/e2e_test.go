// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchpoint-push/internal/common/config"
	"matchpoint-push/internal/common/database"
	"matchpoint-push/internal/common/fcm"
	"matchpoint-push/internal/common/httpclient"
	"matchpoint-push/internal/common/logger"
	"matchpoint-push/internal/dispatch"
	"matchpoint-push/internal/reminder"
	"matchpoint-push/internal/store"
)

// The E2E suite runs the whole pipeline against a real PostgreSQL instance
// and a stubbed provider. It needs PUSH_E2E=1 and a reachable database from
// the loaded config; everything provider-side is served by local test
// servers so no external credentials are involved.

func requireE2E(t *testing.T) *config.Config {
	t.Helper()

	if os.Getenv("PUSH_E2E") != "1" {
		t.Skip("Skipping E2E test; set PUSH_E2E=1 to run")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

// fakeProvider stands in for both the OAuth token endpoint and the FCM send
// endpoint.
type fakeProvider struct {
	tokenServer *httptest.Server
	sendServer  *httptest.Server
	sent        []string // device tokens that received a message
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()

	p := &fakeProvider{}
	p.tokenServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"e2e-access-token","expires_in":3600,"token_type":"Bearer"}`)
	}))
	t.Cleanup(p.tokenServer.Close)

	p.sendServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message struct {
				Token string `json:"token"`
			} `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.sent = append(p.sent, body.Message.Token)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name":"projects/e2e/messages/%d"}`, len(p.sent))
	}))
	t.Cleanup(p.sendServer.Close)

	return p
}

func e2eKeyPEM(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func TestReminderPipelineEndToEnd(t *testing.T) {
	cfg := requireE2E(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer pg.Close()
	require.NoError(t, pg.Ping(ctx))

	provider := newFakeProvider(t)
	fcmCfg := config.FCMConfig{
		ClientEmail:   "e2e@test-project.iam.gserviceaccount.com",
		PrivateKey:    e2eKeyPEM(t),
		ProjectID:     "test-project",
		TokenEndpoint: provider.tokenServer.URL,
		SendEndpoint:  provider.sendServer.URL,
		Timeout:       10000,
	}

	log := logger.NewTestLogger(t)
	db := pg.GetDB()

	// Seed: one user with a device, owning a reservation 4h out.
	userID := "e2e-user-" + uuid.NewString()
	resID := uuid.New()
	deviceToken := "e2e-device-" + uuid.NewString()
	startTime := time.Now().Add(4 * time.Hour).UTC()

	_, err = db.ExecContext(ctx,
		`INSERT INTO device_tokens (user_id, token, platform, created_at, last_used_at) VALUES ($1, $2, 'android', NOW(), NOW())`,
		userID, deviceToken)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO reservations (id, owner_user_id, start_time, reminder_sent) VALUES ($1, $2, $3, FALSE)`,
		resID, userID, startTime)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Exec(`DELETE FROM reservations WHERE id = $1`, resID)
		db.Exec(`DELETE FROM device_tokens WHERE user_id = $1`, userID)
	})

	httpClient := httpclient.NewClient(config.GetDuration(fcmCfg.Timeout))
	exchanger := fcm.NewExchanger(fcmCfg, httpClient, log)
	tokenCache := fcm.NewTokenCache(exchanger, log)
	sender := fcm.NewClient(fcmCfg, httpClient, log)

	tokenRepo := store.NewDeviceTokenRepository(db, log)
	reservationRepo := store.NewReservationRepository(db, log)
	dispatcher := dispatch.NewDispatcher(fcmCfg, tokenRepo, tokenCache, sender, log)
	scanner := reminder.NewScanner(config.ReminderConfig{LeadTime: 240, Tolerance: 10}, reservationRepo, dispatcher, log)

	// First scan claims the reservation and delivers to the device.
	result, err := scanner.Run(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.HostReminders, 1)
	assert.Contains(t, provider.sent, deviceToken)

	var reminderSent bool
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT reminder_sent FROM reservations WHERE id = $1`, resID).Scan(&reminderSent))
	assert.True(t, reminderSent)

	// Second scan must not touch the same reservation again.
	delivered := len(provider.sent)
	_, err = scanner.Run(ctx)
	require.NoError(t, err)

	for _, token := range provider.sent[delivered:] {
		assert.NotEqual(t, deviceToken, token)
	}
}

func TestDirectSendEndToEnd(t *testing.T) {
	cfg := requireE2E(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer pg.Close()
	require.NoError(t, pg.Ping(ctx))

	provider := newFakeProvider(t)
	fcmCfg := config.FCMConfig{
		ClientEmail:   "e2e@test-project.iam.gserviceaccount.com",
		PrivateKey:    e2eKeyPEM(t),
		ProjectID:     "test-project",
		TokenEndpoint: provider.tokenServer.URL,
		SendEndpoint:  provider.sendServer.URL,
		Timeout:       10000,
	}

	log := logger.NewTestLogger(t)
	db := pg.GetDB()

	userID := "e2e-user-" + uuid.NewString()
	deviceToken := "e2e-device-" + uuid.NewString()

	_, err = db.ExecContext(ctx,
		`INSERT INTO device_tokens (user_id, token, platform, created_at, last_used_at) VALUES ($1, $2, 'ios', NOW(), NOW())`,
		userID, deviceToken)
	require.NoError(t, err)
	t.Cleanup(func() { db.Exec(`DELETE FROM device_tokens WHERE user_id = $1`, userID) })

	httpClient := httpclient.NewClient(config.GetDuration(fcmCfg.Timeout))
	dispatcher := dispatch.NewDispatcher(
		fcmCfg,
		store.NewDeviceTokenRepository(db, log),
		fcm.NewTokenCache(fcm.NewExchanger(fcmCfg, httpClient, log), log),
		fcm.NewClient(fcmCfg, httpClient, log),
		log,
	)

	summary, err := dispatcher.Send(ctx, dispatch.Request{
		UserID: userID,
		Title:  "E2E direct send",
		Body:   "hello",
		Source: "api",
	})
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Total)
	assert.Contains(t, provider.sent, deviceToken)
}
