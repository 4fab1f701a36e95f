package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ma5621/perf-working/internal/cache"
)

func setupProvider(t *testing.T) (*mockSettingsFetcher, *cache.SettingsCache, *SettingsProvider) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	api := &mockSettingsFetcher{settings: map[string]string{"whatsapp_phone": "+209876543210"}}
	c := cache.NewSettingsCache(client)
	return api, c, NewSettingsProvider(api, c)
}

func TestSettings_MissFetchesFromAPI(t *testing.T) {
	api, _, provider := setupProvider(t)

	settings, err := provider.Settings(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "+209876543210", settings["whatsapp_phone"])
	assert.Equal(t, 1, api.calls)
}

func TestSettings_HitSkipsAPI(t *testing.T) {
	api, c, provider := setupProvider(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, map[string]string{"whatsapp_phone": "+20111"}))

	settings, err := provider.Settings(ctx)

	require.NoError(t, err)
	assert.Equal(t, "+20111", settings["whatsapp_phone"])
	assert.Equal(t, 0, api.calls)
}

func TestFresh_BypassesCache(t *testing.T) {
	api, c, provider := setupProvider(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, map[string]string{"whatsapp_phone": "stale"}))

	settings, err := provider.Fresh(ctx)

	require.NoError(t, err)
	assert.Equal(t, "+209876543210", settings["whatsapp_phone"])
	assert.Equal(t, 1, api.calls)
}

func TestWhatsAppPhone_APIDown_FallsBackToCache(t *testing.T) {
	api, c, provider := setupProvider(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, map[string]string{"whatsapp_phone": "+20555"}))
	api.err = errors.New("catalog down")

	phone, err := provider.WhatsAppPhone(ctx)

	require.NoError(t, err)
	assert.Equal(t, "+20555", phone)
}

func TestWhatsAppPhone_APIDownNoCache_ReturnsError(t *testing.T) {
	api, _, provider := setupProvider(t)
	api.err = errors.New("catalog down")

	_, err := provider.WhatsAppPhone(context.Background())

	assert.Error(t, err)
}

func TestFresh_RefreshesCacheInBackground(t *testing.T) {
	_, c, provider := setupProvider(t)
	ctx := context.Background()

	_, err := provider.Fresh(ctx)
	require.NoError(t, err)

	// Cache write is async; poll briefly.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cached, errGet := c.Get(ctx); errGet == nil {
			assert.Equal(t, "+209876543210", cached["whatsapp_phone"])
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("cache was never refreshed")
}
