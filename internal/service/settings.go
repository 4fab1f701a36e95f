package service

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/singleflight"

	"github.com/ma5621/perf-working/internal/cache"
)

// SettingsProvider serves store settings with a Redis cache in front of
// the catalog API. Concurrent cache misses are collapsed into a single
// fetch.
type SettingsProvider struct {
	api   SettingsFetcher
	cache *cache.SettingsCache
	sfg   singleflight.Group
}

func NewSettingsProvider(api SettingsFetcher, c *cache.SettingsCache) *SettingsProvider {
	return &SettingsProvider{
		api:   api,
		cache: c,
	}
}

// Settings returns the cached settings, fetching from the catalog API
// on a miss.
func (p *SettingsProvider) Settings(ctx context.Context) (map[string]string, error) {
	v, err, _ := p.sfg.Do("settings", func() (interface{}, error) {
		if p.cache != nil {
			settings, errGet := p.cache.Get(ctx)
			if errGet == nil {
				return settings, nil
			}
			if !errors.Is(errGet, cache.ErrCacheMiss) {
				log.Printf("settings cache get error: %v", errGet)
			}
		}
		return p.fetchAndCache(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

// Fresh bypasses the cache; SubmitOrder uses it so an order never goes
// out with a stale phone number. The fetched copy refreshes the cache.
func (p *SettingsProvider) Fresh(ctx context.Context) (map[string]string, error) {
	v, err, _ := p.sfg.Do("settings-fresh", func() (interface{}, error) {
		return p.fetchAndCache(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

func (p *SettingsProvider) fetchAndCache(ctx context.Context) (map[string]string, error) {
	settings, err := p.api.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		go func() {
			if errSet := p.cache.Set(context.Background(), settings); errSet != nil {
				log.Printf("settings cache set error: %v", errSet)
			}
		}()
	}
	return settings, nil
}

// WhatsAppPhone returns the number that receives orders, preferring a
// fresh read and degrading to the cached copy when the API is down.
func (p *SettingsProvider) WhatsAppPhone(ctx context.Context) (string, error) {
	settings, err := p.Fresh(ctx)
	if err != nil {
		if p.cache != nil {
			if cached, errGet := p.cache.Get(ctx); errGet == nil {
				return cached["whatsapp_phone"], nil
			}
		}
		return "", err
	}
	return settings["whatsapp_phone"], nil
}
