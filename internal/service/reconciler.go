package service

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/ma5621/perf-working/internal/catalog/client"
	"github.com/ma5621/perf-working/internal/domain"
)

var ErrPassInFlight = errors.New("reconciliation pass already in flight")

// Reconciler brings the cart into agreement with the catalog before
// checkout. Lines are checked sequentially so the last-divergence-wins
// price notice is deterministic and the catalog is not hammered with
// parallel fetches.
type Reconciler struct {
	cart    *CartService
	fetcher SnapshotFetcher

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewReconciler(cart *CartService, fetcher SnapshotFetcher) *Reconciler {
	return &Reconciler{
		cart:     cart,
		fetcher:  fetcher,
		inFlight: make(map[string]bool),
	}
}

// InFlight reports whether a pass is currently running for the device.
func (r *Reconciler) InFlight(deviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight[deviceID]
}

func (r *Reconciler) begin(deviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight[deviceID] {
		return false
	}
	r.inFlight[deviceID] = true
	return true
}

func (r *Reconciler) end(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, deviceID)
}

// Reconcile runs one full pass over the device's cart lines and returns
// the diagnostics plus the lines that survived. Only one pass may be in
// flight per device; a concurrent call gets ErrPassInFlight.
//
// Per line:
//   - missing or inactive product: line removed, reason product_inactive
//   - size no longer offered: line removed, reason size_unavailable
//   - price drift: unit price corrected in place, notice overwritten
//     (the line survives, quantity preserved)
//   - transient fetch failure: line left untouched, status unknown,
//     pass continues but is marked incomplete
func (r *Reconciler) Reconcile(ctx context.Context, deviceID string) (*domain.Diagnostics, []domain.CartLine, error) {
	if !r.begin(deviceID) {
		return nil, nil, ErrPassInFlight
	}
	defer r.end(deviceID)

	lines, err := r.cart.Lines(ctx, deviceID)
	if err != nil {
		return nil, nil, err
	}

	diag := domain.NewDiagnostics()
	diag.Complete = true

	if len(lines) == 0 {
		return diag, nil, nil
	}

	var survivors []domain.CartLine
	for _, line := range lines {
		snap, errFetch := r.fetcher.GetProduct(ctx, line.ProductID)

		if errFetch != nil && !errors.Is(errFetch, client.ErrProductNotFound) {
			// Transient failure: status unknown for this line, keep
			// going. The gate treats unknown conservatively.
			log.Printf("reconcile: fetch failed for product %s: %v", line.ProductID, errFetch)
			diag.Complete = false
			survivors = append(survivors, line)
			continue
		}

		if errFetch != nil || !snap.IsActive {
			if err := r.cart.reconcilerRemove(ctx, deviceID, line.ProductID, line.Size); err != nil {
				return nil, nil, err
			}
			diag.Removals[line.ProductID] = domain.RemovalProductInactive
			continue
		}

		newPrice, sizeOffered := snap.PriceFor(line.Size)
		if !sizeOffered {
			if err := r.cart.reconcilerRemove(ctx, deviceID, line.ProductID, line.Size); err != nil {
				return nil, nil, err
			}
			diag.Removals[line.ProductID] = domain.RemovalSizeUnavailable
			continue
		}

		if newPrice != line.UnitPrice {
			if err := r.cart.setUnitPrice(ctx, deviceID, line.ProductID, line.Size, newPrice); err != nil {
				return nil, nil, err
			}
			// Last divergence found wins; an earlier notice in the same
			// pass is superseded, not queued.
			diag.PriceNotice = &domain.PriceNotice{
				ProductID: line.ProductID,
				NameEn:    line.NameEn,
				NameAr:    line.NameAr,
				OldPrice:  line.UnitPrice,
				NewPrice:  newPrice,
			}
			line.UnitPrice = newPrice
		}

		// Price drift alone never blocks checkout, so surviving lines
		// get their status recorded whether or not the price moved.
		diag.StockStatuses[line.ProductID] = snap.StockStatus
		survivors = append(survivors, line)
	}

	return diag, survivors, nil
}
