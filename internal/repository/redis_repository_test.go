package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ma5621/perf-working/internal/domain"
)

// setupTestRedis creates a miniredis server and returns a repository
// backed by it.
func setupTestRedis(t *testing.T) (CartRepository, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	repo := NewRedisRepository(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return repo, mr, cleanup
}

func TestLoadLines_MissingKey_ReturnsEmpty(t *testing.T) {
	repo, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lines, err := repo.LoadLines(context.Background(), "device-1")

	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestSaveLines_RoundTrip(t *testing.T) {
	repo, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	lines := []domain.CartLine{
		{ProductID: "p1", Size: "50ml", Quantity: 2, UnitPrice: 500, NameEn: "Oud Royale"},
		{ProductID: "p2", Size: "30ml", Quantity: 1, UnitPrice: 300, NameEn: "Amber Musk"},
	}

	require.NoError(t, repo.SaveLines(ctx, "device-1", lines))

	// Value must be plain JSON, human-inspectable.
	raw, err := mr.Get("cart:device-1")
	require.NoError(t, err)
	var stored []domain.CartLine
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, lines, stored)

	loaded, err := repo.LoadLines(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, lines, loaded)
}

func TestSaveLines_PreservesInsertionOrder(t *testing.T) {
	repo, _, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	lines := []domain.CartLine{
		{ProductID: "p3", Size: "100ml", Quantity: 1},
		{ProductID: "p1", Size: "50ml", Quantity: 1},
		{ProductID: "p2", Size: "30ml", Quantity: 1},
	}
	require.NoError(t, repo.SaveLines(ctx, "device-1", lines))

	loaded, err := repo.LoadLines(ctx, "device-1")
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, "p3", loaded[0].ProductID)
	assert.Equal(t, "p1", loaded[1].ProductID)
	assert.Equal(t, "p2", loaded[2].ProductID)
}

func TestLoadLines_CorruptPayload_TreatedAsEmpty(t *testing.T) {
	repo, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set("cart:device-1", "{not json"))

	lines, err := repo.LoadLines(context.Background(), "device-1")

	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestNotes_RoundTrip(t *testing.T) {
	repo, _, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	notes, err := repo.LoadNotes(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, "", notes)

	require.NoError(t, repo.SaveNotes(ctx, "device-1", "call before delivery"))

	notes, err = repo.LoadNotes(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, "call before delivery", notes)
}

func TestClear_DeletesLinesAndNotes(t *testing.T) {
	repo, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, repo.SaveLines(ctx, "device-1", []domain.CartLine{{ProductID: "p1", Size: "50ml", Quantity: 1}}))
	require.NoError(t, repo.SaveNotes(ctx, "device-1", "some notes"))

	require.NoError(t, repo.Clear(ctx, "device-1"))

	assert.False(t, mr.Exists("cart:device-1"))
	assert.False(t, mr.Exists("cart:notes:device-1"))
}

func TestSaveLines_SetsTTL(t *testing.T) {
	repo, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, repo.SaveLines(context.Background(), "device-1", []domain.CartLine{{ProductID: "p1", Size: "50ml", Quantity: 1}}))

	assert.Equal(t, cartTTL, mr.TTL("cart:device-1"))
}
