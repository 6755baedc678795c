package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/adityaverma/transitlens/internal/core/domain"
)

// FeedStatus reports the health of the live data pipeline.
type FeedStatus struct {
	SnapshotAgeSec float64 `json:"snapshot_age_seconds"`
	Markers        int     `json:"markers"`
	ETAWatchers    int     `json:"eta_watchers"`
	FeedReachable  bool    `json:"feed_reachable"`
}

// ListRoutesHandler searches routes. An empty q returns the full catalog.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")

		routes, err := deps.Routes.Search(c.Context(), query)
		if err != nil {
			return errBadGateway(c, "transit feed unavailable")
		}

		offset, limit := parsePagination(c)
		page := Pagination{Offset: offset, Limit: limit, Total: len(routes)}
		SetLinkHeaders(c, page)

		return c.JSON(PaginatedResponse{
			Data:       pageSlice(routes, offset, limit),
			Pagination: page,
		})
	}
}

// GetRouteHandler returns a route by ID, polyline sanitized.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "route id is required")
		}
		route, err := deps.Routes.GetByID(c.Context(), id)
		if err != nil {
			return errBadGateway(c, "transit feed unavailable")
		}
		if route == nil {
			return errNotFound(c, "route not found")
		}
		return c.JSON(route)
	}
}

// RouteMapHandler returns the composed, render-ready map state for a route.
// An unknown route still answers 200: the map renders with live markers and
// nothing to draw, never an error page.
func RouteMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "route id is required")
		}
		state, err := deps.Render.Compose(c.Context(), id)
		if err != nil {
			return errBadGateway(c, "transit feed unavailable")
		}
		return c.JSON(state)
	}
}

// LiveBusesHandler returns the latest complete bus snapshot. Before the first
// poll completes it answers an empty snapshot rather than an error.
func LiveBusesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, ok := deps.Render.Snapshot()
		if !ok {
			snap = &domain.BusSnapshot{Markers: []domain.BusPosition{}, TakenAt: time.Now().UTC()}
		}
		return c.JSON(snap)
	}
}

// BusETAHandler returns the refreshing ETA table for one bus.
func BusETAHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "bus id is required")
		}
		eta, err := deps.ETA.Get(c.Context(), id)
		if err != nil {
			return errBadGateway(c, "eta service unavailable")
		}
		return c.JSON(eta)
	}
}

// FeedStatusHandler reports live pipeline health: snapshot freshness, marker
// count, ETA watcher count, and backend reachability.
func FeedStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var status FeedStatus

		if snap, ok := deps.Render.Snapshot(); ok {
			status.SnapshotAgeSec = time.Since(snap.TakenAt).Seconds()
			status.Markers = len(snap.Markers)
		} else {
			status.SnapshotAgeSec = -1 // no snapshot yet
		}
		if deps.ETA != nil {
			status.ETAWatchers = deps.ETA.Watching()
		}
		if deps.Feed != nil {
			status.FeedReachable = deps.Feed.Ping(c.Context()) == nil
		}

		return c.JSON(status)
	}
}
