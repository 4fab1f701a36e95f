package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

const settingsKey = "settings"

// SettingsCache keeps the store settings (WhatsApp phone etc.) in Redis
// so every checkout does not hit the catalog API.
type SettingsCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewSettingsCache(client *redis.Client) *SettingsCache {
	return &SettingsCache{
		client:  client,
		baseTTL: 5 * time.Minute,
	}
}

func (c *SettingsCache) Get(ctx context.Context) (map[string]string, error) {
	data, err := c.client.Get(ctx, settingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var settings map[string]string
	if err2 := json.Unmarshal(data, &settings); err2 != nil {
		return nil, fmt.Errorf("unmarshal settings failed: %w", err2)
	}
	return settings, nil
}

func (c *SettingsCache) Set(ctx context.Context, settings map[string]string) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(30)) * time.Second
	if err := c.client.Set(ctx, settingsKey, data, c.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *SettingsCache) Delete(ctx context.Context) error {
	if err := c.client.Del(ctx, settingsKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
