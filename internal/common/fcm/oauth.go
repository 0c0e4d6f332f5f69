// internal/common/fcm/oauth.go
package fcm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"matchpoint-push/internal/common/config"
	"matchpoint-push/internal/common/errors"
	"matchpoint-push/internal/common/httpclient"
	"matchpoint-push/internal/common/logger"
	"matchpoint-push/internal/common/metrics"
)

const jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// TokenResponse holds the response from the OAuth2 token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Exchanger trades a signed assertion for a bearer access token. Each call
// mints a fresh assertion and performs one blocking round trip; nothing is
// cached between invocations.
type Exchanger struct {
	tokenEndpoint string
	httpClient    *httpclient.Client
	logger        logger.Logger
	now           func() time.Time
}

func NewExchanger(cfg config.FCMConfig, client *httpclient.Client, log logger.Logger) *Exchanger {
	return &Exchanger{
		tokenEndpoint: cfg.TokenEndpoint,
		httpClient:    client,
		logger:        log.WithFields(map[string]interface{}{"component": "fcm-oauth"}),
		now:           time.Now,
	}
}

// AccessToken performs the JWT-bearer exchange and returns the bearer token.
func (e *Exchanger) AccessToken(ctx context.Context, sa *ServiceAccount) (string, error) {
	resp, err := e.Exchange(ctx, sa)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Exchange performs the JWT-bearer exchange. A rejection from the token
// endpoint carries the verbatim response body so an operator can distinguish
// clock skew from a revoked key or a wrong scope. No retry is performed.
func (e *Exchanger) Exchange(ctx context.Context, sa *ServiceAccount) (*TokenResponse, error) {
	assertion, err := BuildAssertion(sa, e.tokenEndpoint, e.now())
	if err != nil {
		return nil, err
	}

	data := url.Values{}
	data.Set("grant_type", jwtBearerGrantType)
	data.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, "POST", e.tokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.NewTokenExchangeFailedError(err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		metrics.TokenExchanges.WithLabelValues("transport_error").Inc()
		return nil, errors.NewTokenExchangeFailedError(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.TokenExchanges.WithLabelValues("transport_error").Inc()
		return nil, errors.NewTokenExchangeFailedError(err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.TokenExchanges.WithLabelValues("rejected").Inc()
		e.logger.Error("token endpoint rejected assertion", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(body),
		})
		return nil, errors.NewTokenExchangeFailedError(string(body))
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		metrics.TokenExchanges.WithLabelValues("rejected").Inc()
		return nil, errors.NewTokenExchangeFailedError("failed to decode token response: " + err.Error())
	}
	if tokenResp.AccessToken == "" {
		metrics.TokenExchanges.WithLabelValues("rejected").Inc()
		return nil, errors.NewTokenExchangeFailedError("token response contained no access_token")
	}

	metrics.TokenExchanges.WithLabelValues("ok").Inc()
	return &tokenResp, nil
}
