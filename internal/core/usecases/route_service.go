package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adityaverma/transitlens/internal/core/domain"
	"github.com/adityaverma/transitlens/internal/core/geo"
	"github.com/adityaverma/transitlens/internal/core/ports"
	"github.com/adityaverma/transitlens/internal/pkg/geospatial"
	"github.com/adityaverma/transitlens/internal/pkg/metrics"
)

// Cache TTLs in seconds. Search results churn more than individual routes.
const (
	routeSearchTTL = 300
	routeByIDTTL   = 600
)

// RouteService fetches routes from the backend and turns their untrusted
// coordinate payloads into drawable polylines with a derived viewport.
type RouteService struct {
	feed    ports.TransitFeed
	cache   ports.CacheService // nil disables caching
	epsilon float64
	anchor  domain.GeoPoint
	padding float64
}

// NewRouteService creates a new RouteService. epsilon is the polyline dedupe
// threshold in degrees, anchor the fallback map center for routes with no
// drawable polyline, padding the margin added around route bounds.
func NewRouteService(feed ports.TransitFeed, cache ports.CacheService, epsilon float64, anchor domain.GeoPoint, padding float64) *RouteService {
	if epsilon <= 0 {
		epsilon = geo.DefaultEpsilon
	}
	return &RouteService{
		feed:    feed,
		cache:   cache,
		epsilon: epsilon,
		anchor:  anchor,
		padding: padding,
	}
}

// Search returns routes matching the query, polylines sanitized. An empty
// query returns all routes.
func (s *RouteService) Search(ctx context.Context, query string) ([]domain.Route, error) {
	key := "routes:search:" + strings.ToLower(strings.TrimSpace(query))

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var routes []domain.Route
			if err := json.Unmarshal(data, &routes); err == nil {
				metrics.CacheHits.WithLabelValues("route_search").Inc()
				return routes, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("route_search").Inc()
	}

	raw, err := s.feed.SearchRoutes(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search routes: %w", err)
	}

	routes := make([]domain.Route, 0, len(raw))
	for _, r := range raw {
		routes = append(routes, s.buildRoute(r))
	}

	if s.cache != nil {
		if data, err := json.Marshal(routes); err == nil {
			_ = s.cache.Set(ctx, key, data, routeSearchTTL)
		}
	}
	return routes, nil
}

// GetByID returns one route, or (nil, nil) when no route has that ID. The
// backend exposes no by-ID lookup, so a miss falls back to the full listing.
func (s *RouteService) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	key := "routes:id:" + id

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var route domain.Route
			if err := json.Unmarshal(data, &route); err == nil {
				metrics.CacheHits.WithLabelValues("route_by_id").Inc()
				return &route, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("route_by_id").Inc()
	}

	routes, err := s.Search(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range routes {
		if routes[i].ID == id {
			if s.cache != nil {
				if data, err := json.Marshal(routes[i]); err == nil {
					_ = s.cache.Set(ctx, key, data, routeByIDTTL)
				}
			}
			return &routes[i], nil
		}
	}
	return nil, nil
}

// buildRoute sanitizes one raw route. Dropping every coordinate is not an
// error: the route is still listable, it just has nothing to draw.
func (s *RouteService) buildRoute(raw domain.RawRoute) domain.Route {
	polyline := geo.SanitizePolyline(raw.Coordinates, s.epsilon)

	if dropped := len(raw.Coordinates) - len(polyline); dropped > 0 {
		metrics.CoordinatesRejected.WithLabelValues("route").Add(float64(dropped))
		slog.Debug("dropped route coordinates",
			"route_id", raw.ID, "received", len(raw.Coordinates), "kept", len(polyline))
	}

	route := domain.Route{
		ID:            raw.ID,
		RouteNumber:   raw.RouteNumber,
		RouteName:     raw.RouteName,
		StartingPoint: raw.StartingPoint,
		EndingPoint:   raw.EndingPoint,
		Stops:         raw.Stops,
		Polyline:      polyline,
		Center:        geo.ResolveCenter(polyline, s.anchor),
		LengthMeters:  geospatial.PathLength(polyline),
		FetchedAt:     time.Now().UTC(),
	}
	if bounds, ok := geo.ResolveBounds(polyline, s.padding); ok {
		route.Bounds = &bounds
	}
	return route
}

// Anchor returns the fallback map center.
func (s *RouteService) Anchor() domain.GeoPoint {
	return s.anchor
}
