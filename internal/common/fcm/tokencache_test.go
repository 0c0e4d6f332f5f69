package fcm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchpoint-push/internal/common/logger"
)

type fakeExchanger struct {
	calls int
	resp  *TokenResponse
	err   error
}

func (f *fakeExchanger) Exchange(ctx context.Context, sa *ServiceAccount) (*TokenResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func newTestTokenCache(t *testing.T, ex tokenExchanger, now time.Time) (*TokenCache, *time.Time) {
	t.Helper()

	clock := now
	cache := NewTokenCache(ex, logger.NewTestLogger(t))
	cache.now = func() time.Time { return clock }
	return cache, &clock
}

func TestTokenCache_SecondCallSkipsExchange(t *testing.T) {
	ex := &fakeExchanger{resp: &TokenResponse{AccessToken: "ya29.first", ExpiresIn: 3600}}
	cache, _ := newTestTokenCache(t, ex, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	sa := &ServiceAccount{ProjectID: "proj-a"}

	token, err := cache.AccessToken(context.Background(), sa)
	require.NoError(t, err)
	assert.Equal(t, "ya29.first", token)

	token, err = cache.AccessToken(context.Background(), sa)
	require.NoError(t, err)
	assert.Equal(t, "ya29.first", token)
	assert.Equal(t, 1, ex.calls)
}

func TestTokenCache_RefreshesBeforeExpiry(t *testing.T) {
	ex := &fakeExchanger{resp: &TokenResponse{AccessToken: "ya29.first", ExpiresIn: 3600}}
	cache, clock := newTestTokenCache(t, ex, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	sa := &ServiceAccount{ProjectID: "proj-a"}

	_, err := cache.AccessToken(context.Background(), sa)
	require.NoError(t, err)

	// 56 minutes in: inside the 5-minute refresh margin of a 60-minute
	// token, so the cache must re-mint even though the token is not yet
	// expired.
	*clock = clock.Add(56 * time.Minute)
	ex.resp = &TokenResponse{AccessToken: "ya29.second", ExpiresIn: 3600}

	token, err := cache.AccessToken(context.Background(), sa)
	require.NoError(t, err)
	assert.Equal(t, "ya29.second", token)
	assert.Equal(t, 2, ex.calls)
}

func TestTokenCache_ProjectsAreIndependent(t *testing.T) {
	ex := &fakeExchanger{resp: &TokenResponse{AccessToken: "ya29.tok", ExpiresIn: 3600}}
	cache, _ := newTestTokenCache(t, ex, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	_, err := cache.AccessToken(context.Background(), &ServiceAccount{ProjectID: "proj-a"})
	require.NoError(t, err)
	_, err = cache.AccessToken(context.Background(), &ServiceAccount{ProjectID: "proj-b"})
	require.NoError(t, err)

	assert.Equal(t, 2, ex.calls)
}

func TestTokenCache_ErrorIsNotCached(t *testing.T) {
	ex := &fakeExchanger{err: fmt.Errorf("endpoint unreachable")}
	cache, _ := newTestTokenCache(t, ex, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	sa := &ServiceAccount{ProjectID: "proj-a"}

	_, err := cache.AccessToken(context.Background(), sa)
	require.Error(t, err)

	ex.err = nil
	ex.resp = &TokenResponse{AccessToken: "ya29.recovered", ExpiresIn: 3600}

	token, err := cache.AccessToken(context.Background(), sa)
	require.NoError(t, err)
	assert.Equal(t, "ya29.recovered", token)
	assert.Equal(t, 2, ex.calls)
}

func TestTokenCache_DegenerateLifetimeIsNotCached(t *testing.T) {
	ex := &fakeExchanger{resp: &TokenResponse{AccessToken: "ya29.short", ExpiresIn: 30}}
	cache, _ := newTestTokenCache(t, ex, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	sa := &ServiceAccount{ProjectID: "proj-a"}

	_, err := cache.AccessToken(context.Background(), sa)
	require.NoError(t, err)
	_, err = cache.AccessToken(context.Background(), sa)
	require.NoError(t, err)

	assert.Equal(t, 2, ex.calls)
}
