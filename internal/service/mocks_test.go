package service

import (
	"context"
	"sync"

	"github.com/ma5621/perf-working/internal/catalog/client"
	"github.com/ma5621/perf-working/internal/domain"
)

// mockRepository is an in-memory CartRepository.
type mockRepository struct {
	m     sync.RWMutex
	lines map[string][]domain.CartLine
	notes map[string]string
	err   error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		lines: make(map[string][]domain.CartLine),
		notes: make(map[string]string),
	}
}

func (m *mockRepository) LoadLines(_ context.Context, deviceID string) ([]domain.CartLine, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.CartLine(nil), m.lines[deviceID]...), nil
}

func (m *mockRepository) SaveLines(_ context.Context, deviceID string, lines []domain.CartLine) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.lines[deviceID] = append([]domain.CartLine(nil), lines...)
	return nil
}

func (m *mockRepository) LoadNotes(_ context.Context, deviceID string) (string, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return "", m.err
	}
	return m.notes[deviceID], nil
}

func (m *mockRepository) SaveNotes(_ context.Context, deviceID, notes string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.notes[deviceID] = notes
	return nil
}

func (m *mockRepository) Clear(_ context.Context, deviceID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.lines, deviceID)
	delete(m.notes, deviceID)
	return nil
}

// mockFetcher serves snapshots from a map. Products listed in failing
// return a transient error; absent products are not found.
type mockFetcher struct {
	m         sync.Mutex
	snapshots map[string]*domain.CatalogSnapshot
	failing   map[string]error
	calls     []string
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		snapshots: make(map[string]*domain.CatalogSnapshot),
		failing:   make(map[string]error),
	}
}

func (m *mockFetcher) GetProduct(_ context.Context, productID string) (*domain.CatalogSnapshot, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls = append(m.calls, productID)
	if err, ok := m.failing[productID]; ok {
		return nil, err
	}
	snap, ok := m.snapshots[productID]
	if !ok {
		return nil, client.ErrProductNotFound
	}
	cp := *snap
	return &cp, nil
}

func (m *mockFetcher) set(snap *domain.CatalogSnapshot) {
	m.m.Lock()
	defer m.m.Unlock()
	m.snapshots[snap.ProductID] = snap
}

type mockSettingsFetcher struct {
	m        sync.Mutex
	settings map[string]string
	err      error
	calls    int
}

func (m *mockSettingsFetcher) GetSettings(context.Context) (map[string]string, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.settings, nil
}

type mockPublisher struct {
	m      sync.Mutex
	events []domain.OrderSubmitted
	err    error
}

func (m *mockPublisher) PublishOrderSubmitted(_ context.Context, event domain.OrderSubmitted) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}
