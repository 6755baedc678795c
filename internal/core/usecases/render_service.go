package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/adityaverma/transitlens/internal/core/domain"
	"github.com/adityaverma/transitlens/internal/core/ports"
	"github.com/adityaverma/transitlens/internal/pkg/metrics"
)

// RenderService composes the render-ready map state. It holds the latest
// complete bus snapshot and recomputes a route's full state from scratch on
// every request or snapshot tick; nothing is patched in place.
type RenderService struct {
	routes    *RouteService
	publisher ports.EventPublisher // nil disables fan-out

	mu       sync.Mutex
	latest   *domain.BusSnapshot
	watchers map[string]int // routeID -> subscriber count
}

// NewRenderService creates a new RenderService.
func NewRenderService(routes *RouteService, publisher ports.EventPublisher) *RenderService {
	return &RenderService{
		routes:    routes,
		publisher: publisher,
		watchers:  make(map[string]int),
	}
}

// ApplySnapshot replaces the current bus snapshot wholesale and re-publishes
// composed state for every watched route.
func (s *RenderService) ApplySnapshot(ctx context.Context, snap *domain.BusSnapshot) {
	if snap == nil {
		return
	}

	s.mu.Lock()
	s.latest = snap
	watched := make([]string, 0, len(s.watchers))
	for routeID := range s.watchers {
		watched = append(watched, routeID)
	}
	s.mu.Unlock()

	metrics.MarkersProjected.Set(float64(len(snap.Markers)))
	metrics.SnapshotAgeSeconds.Set(time.Since(snap.TakenAt).Seconds())

	if s.publisher == nil {
		return
	}
	for _, routeID := range watched {
		state, err := s.Compose(ctx, routeID)
		if err != nil {
			slog.Warn("compose for watched route failed", "route_id", routeID, "error", err)
			continue
		}
		if err := s.publisher.PublishRenderState(ctx, state); err != nil {
			slog.Warn("publish render state failed", "route_id", routeID, "error", err)
		}
	}
}

// Snapshot returns the latest applied bus snapshot, if any.
func (s *RenderService) Snapshot() (*domain.BusSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil, false
	}
	return s.latest, true
}

// Compose builds the complete map state for one route. An empty routeID, or
// an unknown one, still composes: the map shows all current markers over the
// anchor viewport with nothing to draw.
func (s *RenderService) Compose(ctx context.Context, routeID string) (*domain.RenderState, error) {
	var route *domain.Route
	if routeID != "" {
		r, err := s.routes.GetByID(ctx, routeID)
		if err != nil {
			return nil, err
		}
		route = r
	}

	s.mu.Lock()
	snap := s.latest
	s.mu.Unlock()

	state := &domain.RenderState{
		RouteID:     routeID,
		Center:      s.routes.Anchor(),
		GeneratedAt: time.Now().UTC(),
	}

	if route != nil {
		state.Center = route.Center
		state.Bounds = route.Bounds
		state.Polyline = append(domain.Polyline(nil), route.Polyline...)
	}

	if snap != nil {
		state.Markers = filterMarkers(snap.Markers, route)
	}
	if state.Markers == nil {
		state.Markers = []domain.BusPosition{}
	}
	return state, nil
}

// filterMarkers keeps the markers belonging to the route, matched by route ID
// or, failing that, by route name. With no route every marker is kept.
func filterMarkers(markers []domain.BusPosition, route *domain.Route) []domain.BusPosition {
	if route == nil {
		return append([]domain.BusPosition(nil), markers...)
	}
	out := make([]domain.BusPosition, 0, len(markers))
	for _, m := range markers {
		if m.RouteID == route.ID || (m.RouteName != "" && m.RouteName == route.RouteName) {
			out = append(out, m)
		}
	}
	return out
}

// Watch registers interest in a route's composed state. Snapshot ticks will
// publish a fresh RenderState for it until the last watcher leaves.
func (s *RenderService) Watch(routeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers[routeID]++
}

// Unwatch drops one watcher for the route.
func (s *RenderService) Unwatch(routeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.watchers[routeID]; n <= 1 {
		delete(s.watchers, routeID)
	} else {
		s.watchers[routeID] = n - 1
	}
}
