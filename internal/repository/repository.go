package repository

import (
	"context"

	"github.com/ma5621/perf-working/internal/domain"
)

// CartRepository is the durable store for one device's cart. Lines are
// kept as an ordered list under a single key; order notes live under a
// separate key. Every Save is synchronous so a reload always reflects
// the last completed mutation.
type CartRepository interface {
	LoadLines(ctx context.Context, deviceID string) ([]domain.CartLine, error)
	SaveLines(ctx context.Context, deviceID string, lines []domain.CartLine) error
	LoadNotes(ctx context.Context, deviceID string) (string, error)
	SaveNotes(ctx context.Context, deviceID string, notes string) error
	Clear(ctx context.Context, deviceID string) error
}
