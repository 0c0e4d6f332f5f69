// internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"strconv"
	"time"

	"matchpoint-push/internal/common/config"
	"matchpoint-push/internal/common/errors"
	"matchpoint-push/internal/common/fcm"
	"matchpoint-push/internal/common/logger"
	"matchpoint-push/internal/common/metrics"
	"matchpoint-push/internal/models"
)

// TokenSource lists the registered device tokens of a user. Satisfied by the
// plain repository and by its cache decorator alike.
type TokenSource interface {
	ListTokensForUser(ctx context.Context, userID string) ([]models.DeviceToken, error)
}

// AccessTokenSource exchanges service-account credentials for a short-lived
// bearer token.
type AccessTokenSource interface {
	AccessToken(ctx context.Context, sa *fcm.ServiceAccount) (string, error)
}

// MulticastSender fans one message out to many device tokens.
type MulticastSender interface {
	SendEachForMulticast(ctx context.Context, accessToken, projectID string, msg fcm.MulticastMessage) models.DispatchSummary
}

// Request is one logical notification addressed to a user. Source labels
// where the request came from ("api", "reminder") for metrics and logs.
type Request struct {
	UserID string
	Title  string
	Body   string
	Data   map[string]string
	Source string
}

// Dispatcher resolves a user to device tokens, obtains an access token and
// multicasts the message. Credentials are loaded per dispatch so a rotation
// of the environment takes effect without a restart.
type Dispatcher struct {
	cfg    config.FCMConfig
	tokens TokenSource
	auth   AccessTokenSource
	sender MulticastSender
	logger logger.Logger
}

func NewDispatcher(cfg config.FCMConfig, tokens TokenSource, auth AccessTokenSource, sender MulticastSender, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		tokens: tokens,
		auth:   auth,
		sender: sender,
		logger: log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

// Send delivers one notification to every device registered for the user.
//
// A user with no registered devices is a valid state, not an error: the
// returned summary says so and the nil error keeps callers (the reminder
// scanner in particular) from treating it as a failure.
func (d *Dispatcher) Send(ctx context.Context, req Request) (models.DispatchSummary, error) {
	if err := validateRequest(req); err != nil {
		return models.DispatchSummary{}, err
	}

	sa, err := fcm.LoadServiceAccount(d.cfg)
	if err != nil {
		return models.DispatchSummary{}, err
	}

	tokens, err := d.tokens.ListTokensForUser(ctx, req.UserID)
	if err != nil {
		return models.DispatchSummary{}, err
	}

	if len(tokens) == 0 {
		d.logger.Info("no device tokens registered", map[string]interface{}{
			"userId": req.UserID,
			"source": req.Source,
		})
		return models.DispatchSummary{
			Success: false,
			Message: "No device tokens found",
			Details: []models.DeliveryResult{},
		}, nil
	}

	accessToken, err := d.auth.AccessToken(ctx, sa)
	if err != nil {
		return models.DispatchSummary{}, err
	}

	msg := fcm.MulticastMessage{
		Tokens: tokenValues(tokens),
		Title:  req.Title,
		Body:   req.Body,
		Data:   req.Data,
	}

	start := time.Now()
	summary := d.sender.SendEachForMulticast(ctx, accessToken, sa.ProjectID, msg)
	metrics.DispatchDuration.WithLabelValues(req.Source).Observe(time.Since(start).Seconds())

	metrics.NotificationsSent.WithLabelValues(req.Source).Add(float64(summary.Sent))
	for _, detail := range summary.Details {
		if !detail.Success {
			metrics.NotificationsFailed.WithLabelValues(req.Source, failureReason(detail)).Inc()
		}
	}

	d.logger.Info("dispatch complete", map[string]interface{}{
		"userId": req.UserID,
		"source": req.Source,
		"sent":   summary.Sent,
		"failed": summary.Failed,
		"total":  summary.Total,
	})

	return summary, nil
}

func validateRequest(req Request) error {
	var missing []string
	if req.UserID == "" {
		missing = append(missing, "userId")
	}
	if req.Title == "" {
		missing = append(missing, "title")
	}
	if req.Body == "" {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return errors.NewValidationFailedError(missing)
	}
	return nil
}

func tokenValues(tokens []models.DeviceToken) []string {
	values := make([]string, len(tokens))
	for i, t := range tokens {
		values[i] = t.Token
	}
	return values
}

func failureReason(detail models.DeliveryResult) string {
	if detail.Status > 0 {
		return strconv.Itoa(detail.Status)
	}
	return "transport_error"
}
