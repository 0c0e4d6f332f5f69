// internal/store/cache.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"matchpoint-push/internal/common/logger"
	"matchpoint-push/internal/models"
)

// TokenLister is the read side of the device-token store.
type TokenLister interface {
	ListTokensForUser(ctx context.Context, userID string) ([]models.DeviceToken, error)
}

// CachedTokenLister is a read-aside cache decorator over any TokenLister.
// Registration happens outside this service, so there is no invalidation
// hook; the TTL bounds how stale a token list can get.
type CachedTokenLister struct {
	realStore TokenLister
	cache     *redis.Client
	ttl       time.Duration
	logger    logger.Logger
}

func NewCachedTokenLister(realStore TokenLister, cache *redis.Client, ttl time.Duration, log logger.Logger) *CachedTokenLister {
	return &CachedTokenLister{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
		logger:    log.WithFields(map[string]interface{}{"component": "token-cache"}),
	}
}

// cachedToken mirrors models.DeviceToken for the cache payload. The model
// hides Token from JSON on purpose, so the cache needs its own envelope.
type cachedToken struct {
	UserID     string    `json:"user_id"`
	Token      string    `json:"token"`
	Platform   string    `json:"platform"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

func (c *CachedTokenLister) ListTokensForUser(ctx context.Context, userID string) ([]models.DeviceToken, error) {
	key := c.cacheKey(userID)

	cached, err := c.cache.Get(ctx, key).Result()
	if err == nil {
		var entries []cachedToken
		if err := json.Unmarshal([]byte(cached), &entries); err == nil {
			return fromCache(entries), nil
		}
		// Corrupt entry: fall through to the real store and overwrite it.
	}

	tokens, err := c.realStore.ListTokensForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Caching is an optimization, not a transaction. If redis is down we
	// just keep serving from the database.
	if payload, err := json.Marshal(toCache(tokens)); err == nil {
		if err := c.cache.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("failed to cache device tokens", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		}
	}

	return tokens, nil
}

func toCache(tokens []models.DeviceToken) []cachedToken {
	entries := make([]cachedToken, 0, len(tokens))
	for _, t := range tokens {
		entries = append(entries, cachedToken{
			UserID:     t.UserID,
			Token:      t.Token,
			Platform:   t.Platform,
			CreatedAt:  t.CreatedAt,
			LastUsedAt: t.LastUsedAt,
		})
	}
	return entries
}

func fromCache(entries []cachedToken) []models.DeviceToken {
	tokens := make([]models.DeviceToken, 0, len(entries))
	for _, e := range entries {
		tokens = append(tokens, models.DeviceToken{
			UserID:     e.UserID,
			Token:      e.Token,
			Platform:   e.Platform,
			CreatedAt:  e.CreatedAt,
			LastUsedAt: e.LastUsedAt,
		})
	}
	return tokens
}

func (c *CachedTokenLister) cacheKey(userID string) string {
	return fmt.Sprintf("push:tokens:%s", userID)
}
