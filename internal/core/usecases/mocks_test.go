package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/adityaverma/transitlens/internal/core/domain"
)

// --- Mock TransitFeed ---

type mockFeed struct {
	liveBusesFn    func(ctx context.Context) ([]domain.RawBusRecord, error)
	searchRoutesFn func(ctx context.Context, query string) ([]domain.RawRoute, error)
	busETAFn       func(ctx context.Context, busID string) (*domain.BusETA, error)
}

func (m *mockFeed) LiveBuses(ctx context.Context) ([]domain.RawBusRecord, error) {
	if m.liveBusesFn != nil {
		return m.liveBusesFn(ctx)
	}
	return nil, nil
}

func (m *mockFeed) SearchRoutes(ctx context.Context, query string) ([]domain.RawRoute, error) {
	if m.searchRoutesFn != nil {
		return m.searchRoutesFn(ctx, query)
	}
	return nil, nil
}

func (m *mockFeed) BusETA(ctx context.Context, busID string) (*domain.BusETA, error) {
	if m.busETAFn != nil {
		return m.busETAFn(ctx, busID)
	}
	return &domain.BusETA{BusID: busID}, nil
}

func (m *mockFeed) Ping(ctx context.Context) error { return nil }

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("cache miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	snapshots []*domain.BusSnapshot
	positions []*domain.BusPosition
	states    []*domain.RenderState
}

func (m *mockPublisher) PublishBusSnapshot(ctx context.Context, snap *domain.BusSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, snap)
	return nil
}

func (m *mockPublisher) PublishBusPosition(ctx context.Context, pos *domain.BusPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = append(m.positions, pos)
	return nil
}

func (m *mockPublisher) PublishRenderState(ctx context.Context, state *domain.RenderState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
	return nil
}

func (m *mockPublisher) renderStates() []*domain.RenderState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.RenderState(nil), m.states...)
}
