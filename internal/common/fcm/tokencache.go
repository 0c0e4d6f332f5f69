// internal/common/fcm/tokencache.go
package fcm

import (
	"context"
	"sync"
	"time"

	"matchpoint-push/internal/common/logger"
)

// refreshMargin is subtracted from the provider-reported lifetime so a token
// is re-minted before it actually expires; a token handed to the dispatcher
// must outlive the whole multicast.
const refreshMargin = 5 * time.Minute

type tokenExchanger interface {
	Exchange(ctx context.Context, sa *ServiceAccount) (*TokenResponse, error)
}

type cachedAccessToken struct {
	token     string
	expiresAt time.Time
}

// TokenCache keeps exchanged access tokens keyed by project id, re-minting
// only when the cached one is within refreshMargin of expiry. The mutex is
// held across the exchange so concurrent dispatches for the same project
// perform a single round trip instead of a thundering herd.
type TokenCache struct {
	exchanger tokenExchanger
	logger    logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]cachedAccessToken
}

func NewTokenCache(exchanger tokenExchanger, log logger.Logger) *TokenCache {
	return &TokenCache{
		exchanger: exchanger,
		logger:    log.WithFields(map[string]interface{}{"component": "fcm-token-cache"}),
		now:       time.Now,
		entries:   make(map[string]cachedAccessToken),
	}
}

// AccessToken returns a cached bearer token for the service account's
// project, exchanging a fresh assertion if none is cached or the cached one
// is close to expiry. Exchange failures are not cached.
func (c *TokenCache) AccessToken(ctx context.Context, sa *ServiceAccount) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[sa.ProjectID]; ok && c.now().Before(entry.expiresAt) {
		return entry.token, nil
	}

	resp, err := c.exchanger.Exchange(ctx, sa)
	if err != nil {
		return "", err
	}

	lifetime := time.Duration(resp.ExpiresIn) * time.Second
	expiresAt := c.now().Add(lifetime - refreshMargin)
	if lifetime <= refreshMargin {
		// Degenerate lifetime from the provider: use the token once,
		// cache nothing.
		return resp.AccessToken, nil
	}

	c.entries[sa.ProjectID] = cachedAccessToken{token: resp.AccessToken, expiresAt: expiresAt}
	c.logger.Debug("cached access token", map[string]interface{}{
		"projectId": sa.ProjectID,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})

	return resp.AccessToken, nil
}
