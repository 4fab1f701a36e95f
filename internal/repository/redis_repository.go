package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ma5621/perf-working/internal/domain"
)

// cartTTL keeps abandoned carts around for 90 days before they expire.
const cartTTL = 90 * 24 * time.Hour

type redisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) CartRepository {
	return &redisRepository{client: client}
}

func (r *redisRepository) LoadLines(ctx context.Context, deviceID string) ([]domain.CartLine, error) {
	data, err := r.client.Get(ctx, linesKey(deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var lines []domain.CartLine
	if err2 := json.Unmarshal(data, &lines); err2 != nil {
		// The stored list carries no version field, so a payload from
		// an incompatible schema cannot be migrated. Treat it as an
		// empty cart rather than poisoning every load.
		log.Printf("discarding unreadable cart for device %s: %v", deviceID, err2)
		return nil, nil
	}

	return lines, nil
}

func (r *redisRepository) SaveLines(ctx context.Context, deviceID string, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := r.client.Set(ctx, linesKey(deviceID), data, cartTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *redisRepository) LoadNotes(ctx context.Context, deviceID string) (string, error) {
	notes, err := r.client.Get(ctx, notesKey(deviceID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return notes, nil
}

func (r *redisRepository) SaveNotes(ctx context.Context, deviceID string, notes string) error {
	if err := r.client.Set(ctx, notesKey(deviceID), notes, cartTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *redisRepository) Clear(ctx context.Context, deviceID string) error {
	if err := r.client.Del(ctx, linesKey(deviceID), notesKey(deviceID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func linesKey(deviceID string) string {
	return fmt.Sprintf("cart:%s", deviceID)
}

func notesKey(deviceID string) string {
	return fmt.Sprintf("cart:notes:%s", deviceID)
}
