package service

import (
	"context"
	"errors"
	"sync"

	"github.com/ma5621/perf-working/internal/domain"
	"github.com/ma5621/perf-working/internal/repository"
)

var ErrMissingProductID = errors.New("product id is required")

// CartService owns every mutation of the persistent cart line list.
// The reconciler and the HTTP layer never hold a second mutable copy;
// each operation is load, mutate, save with synchronous durability.
type CartService struct {
	repo repository.CartRepository

	// mu serializes load-modify-save cycles. The cart is device-scoped
	// and low-traffic, a single process-wide lock is enough.
	mu sync.Mutex

	onMutate func(deviceID string)
}

func NewCartService(repo repository.CartRepository) *CartService {
	return &CartService{repo: repo}
}

// OnMutate registers a hook invoked after every user-driven mutation.
// The checkout gate uses it to invalidate stale stock knowledge.
// Corrections applied by the reconciler do not fire it.
func (s *CartService) OnMutate(fn func(deviceID string)) {
	s.onMutate = fn
}

func (s *CartService) notify(deviceID string) {
	if s.onMutate != nil {
		s.onMutate(deviceID)
	}
}

// Lines returns the cart's line list in insertion order.
func (s *CartService) Lines(ctx context.Context, deviceID string) ([]domain.CartLine, error) {
	return s.repo.LoadLines(ctx, deviceID)
}

// AddLine appends a line, or increments the quantity of an existing
// line with the same (productID, size) identity. A line without a
// product id is rejected.
func (s *CartService) AddLine(ctx context.Context, deviceID string, line domain.CartLine) error {
	if line.ProductID == "" {
		return ErrMissingProductID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.repo.LoadLines(ctx, deviceID)
	if err != nil {
		return err
	}

	merged := false
	for i := range lines {
		if lines[i].Matches(line.ProductID, line.Size) {
			lines[i].Quantity = domain.ClampQuantity(lines[i].Quantity + line.Quantity)
			merged = true
			break
		}
	}
	if !merged {
		line.Quantity = domain.ClampQuantity(line.Quantity)
		lines = append(lines, line)
	}

	if err := s.repo.SaveLines(ctx, deviceID, lines); err != nil {
		return err
	}
	s.notify(deviceID)
	return nil
}

// RemoveLine deletes the matching line. Removing an absent line is a
// no-op, not an error.
func (s *CartService) RemoveLine(ctx context.Context, deviceID, productID, size string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.removeLine(ctx, deviceID, productID, size); err != nil {
		return err
	}
	s.notify(deviceID)
	return nil
}

// removeLine is the lock-free core of RemoveLine; the reconciler calls
// it directly so its own corrections do not invalidate the pass it is
// about to publish.
func (s *CartService) removeLine(ctx context.Context, deviceID, productID, size string) error {
	lines, err := s.repo.LoadLines(ctx, deviceID)
	if err != nil {
		return err
	}

	kept := lines[:0]
	for _, l := range lines {
		if !l.Matches(productID, size) {
			kept = append(kept, l)
		}
	}
	return s.repo.SaveLines(ctx, deviceID, kept)
}

// SetQuantity overwrites the quantity of the matching line, clamped to
// [1, 99]. A quantity of zero or less removes the line.
func (s *CartService) SetQuantity(ctx context.Context, deviceID, productID, size string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		if err := s.removeLine(ctx, deviceID, productID, size); err != nil {
			return err
		}
		s.notify(deviceID)
		return nil
	}

	lines, err := s.repo.LoadLines(ctx, deviceID)
	if err != nil {
		return err
	}

	for i := range lines {
		if lines[i].Matches(productID, size) {
			lines[i].Quantity = domain.ClampQuantity(quantity)
			break
		}
	}

	if err := s.repo.SaveLines(ctx, deviceID, lines); err != nil {
		return err
	}
	s.notify(deviceID)
	return nil
}

// setUnitPrice overwrites the unit price of the matching line. Used
// exclusively by the reconciler for price corrections.
func (s *CartService) setUnitPrice(ctx context.Context, deviceID, productID, size string, newPrice float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.repo.LoadLines(ctx, deviceID)
	if err != nil {
		return err
	}

	for i := range lines {
		if lines[i].Matches(productID, size) {
			lines[i].UnitPrice = newPrice
			break
		}
	}
	return s.repo.SaveLines(ctx, deviceID, lines)
}

// reconcilerRemove is removeLine behind the service lock, for the
// reconciler.
func (s *CartService) reconcilerRemove(ctx context.Context, deviceID, productID, size string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLine(ctx, deviceID, productID, size)
}

// Clear empties the cart and forgets the order notes.
func (s *CartService) Clear(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Clear(ctx, deviceID); err != nil {
		return err
	}
	s.notify(deviceID)
	return nil
}

// TotalPrice is the sum of unit price times quantity over all lines.
func (s *CartService) TotalPrice(ctx context.Context, deviceID string) (float64, error) {
	lines, err := s.repo.LoadLines(ctx, deviceID)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, l := range lines {
		total += l.LineTotal()
	}
	return total, nil
}

// TotalCount is the sum of quantities over all lines.
func (s *CartService) TotalCount(ctx context.Context, deviceID string) (int, error) {
	lines, err := s.repo.LoadLines(ctx, deviceID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return count, nil
}

func (s *CartService) Notes(ctx context.Context, deviceID string) (string, error) {
	return s.repo.LoadNotes(ctx, deviceID)
}

func (s *CartService) SetNotes(ctx context.Context, deviceID, notes string) error {
	return s.repo.SaveNotes(ctx, deviceID, notes)
}
