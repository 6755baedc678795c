package ports

import (
	"context"

	"github.com/adityaverma/transitlens/internal/core/domain"
)

// TransitFeed is the backend transit API this service consumes. The backend
// owns persistence and ETA computation; everything it returns is treated as
// untrusted input.
type TransitFeed interface {
	// LiveBuses returns the backend's current bus snapshot, coordinates
	// unvalidated.
	LiveBuses(ctx context.Context) ([]domain.RawBusRecord, error)

	// SearchRoutes returns routes matching the query, or all routes when
	// the query is empty.
	SearchRoutes(ctx context.Context, query string) ([]domain.RawRoute, error)

	// BusETA returns the external ETA service's payload for one bus.
	BusETA(ctx context.Context, busID string) (*domain.BusETA, error)

	// Ping checks backend reachability for readiness probes.
	Ping(ctx context.Context) error
}
