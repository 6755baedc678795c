package ports

import (
	"context"

	"github.com/adityaverma/transitlens/internal/core/domain"
)

// EventPublisher publishes live map events to a message broker.
type EventPublisher interface {
	PublishBusSnapshot(ctx context.Context, snap *domain.BusSnapshot) error
	PublishBusPosition(ctx context.Context, pos *domain.BusPosition) error
	PublishRenderState(ctx context.Context, state *domain.RenderState) error
}

// EventSubscriber subscribes to live map events from a message broker.
type EventSubscriber interface {
	SubscribeBusSnapshots(ctx context.Context, handler func(ctx context.Context, snap *domain.BusSnapshot) error) error
}

// CacheService provides read-through caching. ttlSeconds <= 0 means the key
// does not expire.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
