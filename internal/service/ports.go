package service

import (
	"context"

	"github.com/ma5621/perf-working/internal/domain"
)

// SnapshotFetcher retrieves current catalog truth for one product.
// The reconciler treats a fetch error other than not-found as transient.
type SnapshotFetcher interface {
	GetProduct(ctx context.Context, productID string) (*domain.CatalogSnapshot, error)
}

// SettingsFetcher retrieves the store settings from the catalog API.
type SettingsFetcher interface {
	GetSettings(ctx context.Context) (map[string]string, error)
}

// OrderPublisher emits an event for every submitted order. Publishing
// is fire-and-forget; checkout never fails because of it.
type OrderPublisher interface {
	PublishOrderSubmitted(ctx context.Context, event domain.OrderSubmitted) error
}
