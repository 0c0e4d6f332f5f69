// internal/common/fcm/client.go
package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"matchpoint-push/internal/common/config"
	"matchpoint-push/internal/common/httpclient"
	"matchpoint-push/internal/common/logger"
	"matchpoint-push/internal/models"
)

// MulticastMessage is one logical notification fanned out to many device
// tokens as independent per-token requests.
type MulticastMessage struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}

// --- FCM HTTP v1 message envelope ---

type sendRequest struct {
	Message messageEnvelope `json:"message"`
}

type messageEnvelope struct {
	Token        string              `json:"token"`
	Notification notificationFields  `json:"notification"`
	Data         map[string]string   `json:"data"`
	Android      *androidConfig      `json:"android,omitempty"`
	APNS         *apnsConfig         `json:"apns,omitempty"`
}

type notificationFields struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type androidConfig struct {
	Priority     string              `json:"priority"`
	Notification androidNotification `json:"notification"`
}

type androidNotification struct {
	Sound     string `json:"sound"`
	ChannelID string `json:"channel_id"`
}

type apnsConfig struct {
	Payload apnsPayload `json:"payload"`
}

type apnsPayload struct {
	APS apsFields `json:"aps"`
}

type apsFields struct {
	Sound string `json:"sound"`
}

// Client sends messages to the FCM HTTP v1 per-project endpoint.
type Client struct {
	baseURL    string
	httpClient *httpclient.Client
	logger     logger.Logger
}

func NewClient(cfg config.FCMConfig, client *httpclient.Client, log logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.SendEndpoint,
		httpClient: client,
		logger:     log.WithFields(map[string]interface{}{"component": "fcm-client"}),
	}
}

// SendEachForMulticast sends one request per token, all concurrently, and
// waits for every request to settle before aggregating. One token's failure
// never cancels another's request; the details slice is index-aligned to the
// input token order.
func (c *Client) SendEachForMulticast(ctx context.Context, accessToken, projectID string, msg MulticastMessage) models.DispatchSummary {
	details := make([]models.DeliveryResult, len(msg.Tokens))

	var wg sync.WaitGroup
	for i, token := range msg.Tokens {
		wg.Add(1)
		go func(idx int, deviceToken string) {
			defer wg.Done()
			details[idx] = c.sendOne(ctx, accessToken, projectID, deviceToken, msg)
			details[idx].TokenIndex = idx
		}(i, token)
	}
	wg.Wait()

	summary := models.DispatchSummary{
		Total:   len(msg.Tokens),
		Details: details,
	}
	for _, r := range details {
		if r.Success {
			summary.Sent++
		} else {
			summary.Failed++
		}
	}
	summary.Success = summary.Sent > 0

	return summary
}

func (c *Client) sendOne(ctx context.Context, accessToken, projectID, deviceToken string, msg MulticastMessage) models.DeliveryResult {
	data := msg.Data
	if data == nil {
		data = map[string]string{}
	}

	envelope := sendRequest{
		Message: messageEnvelope{
			Token: deviceToken,
			Notification: notificationFields{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: data,
			Android: &androidConfig{
				Priority: "high",
				Notification: androidNotification{
					Sound:     "default",
					ChannelID: "default",
				},
			},
			APNS: &apnsConfig{
				Payload: apnsPayload{APS: apsFields{Sound: "default"}},
			},
		},
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return models.DeliveryResult{Success: false, Error: err.Error()}
	}

	sendURL := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.baseURL, projectID)
	req, err := http.NewRequestWithContext(ctx, "POST", sendURL, bytes.NewReader(payload))
	if err != nil {
		return models.DeliveryResult{Success: false, Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.DeliveryResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.DeliveryResult{Success: false, Error: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.DeliveryResult{
			Success:    false,
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Error:      string(body),
		}
	}

	// 2xx: keep the parsed provider response, or the raw text if the body
	// is not JSON.
	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		parsed = string(body)
	}
	return models.DeliveryResult{
		Success:  true,
		Status:   resp.StatusCode,
		Response: parsed,
	}
}
