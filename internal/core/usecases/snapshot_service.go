package usecases

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/adityaverma/transitlens/internal/core/domain"
	"github.com/adityaverma/transitlens/internal/core/geo"
	"github.com/adityaverma/transitlens/internal/core/ports"
	"github.com/adityaverma/transitlens/internal/pkg/metrics"
	"github.com/adityaverma/transitlens/internal/pkg/poller"
)

// Key under which the last good snapshot survives process restarts.
const snapshotCacheKey = "buses:latest"

// SnapshotService polls the backend's live bus feed, projects the raw records
// into markers, and hands each complete snapshot downstream. Exactly one
// poll loop writes the snapshot; consumers only ever read.
type SnapshotService struct {
	feed        ports.TransitFeed
	cache       ports.CacheService   // nil disables last-good persistence
	publisher   ports.EventPublisher // nil disables broker fan-out
	highlightID string
	interval    time.Duration
	onSnapshot  func(context.Context, *domain.BusSnapshot)

	handle *poller.Handle[*domain.BusSnapshot]
}

// NewSnapshotService creates a new SnapshotService. onSnapshot, when not nil,
// receives every applied snapshot in poll order.
func NewSnapshotService(
	feed ports.TransitFeed,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	highlightID string,
	interval time.Duration,
	onSnapshot func(context.Context, *domain.BusSnapshot),
) *SnapshotService {
	return &SnapshotService{
		feed:        feed,
		cache:       cache,
		publisher:   publisher,
		highlightID: highlightID,
		interval:    interval,
		onSnapshot:  onSnapshot,
	}
}

// Start launches the poll loop. The first tick fires immediately.
func (s *SnapshotService) Start() {
	s.handle = poller.Start(poller.Config[*domain.BusSnapshot]{
		Interval: s.interval,
		Fetch:    s.fetch,
		OnResult: s.apply,
		OnError: func(err error) {
			metrics.FeedPollErrors.WithLabelValues("buses").Inc()
			slog.Warn("live bus poll failed, keeping last snapshot", "error", err)
		},
		OnStale: func() {
			metrics.StaleResultsDiscarded.WithLabelValues("buses").Inc()
		},
	})
}

// Latest returns the most recent snapshot this loop has applied.
func (s *SnapshotService) Latest() (*domain.BusSnapshot, bool) {
	if s.handle == nil {
		return nil, false
	}
	return s.handle.Latest()
}

// Stop halts the loop. Any in-flight poll result is discarded.
func (s *SnapshotService) Stop() {
	if s.handle != nil {
		s.handle.Stop()
	}
}

func (s *SnapshotService) fetch(ctx context.Context) (*domain.BusSnapshot, error) {
	start := time.Now()
	raw, err := s.feed.LiveBuses(ctx)
	metrics.FeedPollDuration.WithLabelValues("buses").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	markers := geo.ProjectMarkers(raw, s.highlightID)
	if dropped := len(raw) - len(markers); dropped > 0 {
		metrics.CoordinatesRejected.WithLabelValues("bus").Add(float64(dropped))
	}

	return &domain.BusSnapshot{
		Markers: markers,
		TakenAt: time.Now().UTC(),
	}, nil
}

// apply runs inside the poll callback, so snapshots arrive downstream in
// strictly increasing poll order.
func (s *SnapshotService) apply(snap *domain.BusSnapshot) {
	ctx := context.Background()

	if s.cache != nil {
		if data, err := json.Marshal(snap); err == nil {
			// No TTL: after an outage, stale-but-valid beats a blank map.
			if err := s.cache.Set(ctx, snapshotCacheKey, data, 0); err != nil {
				slog.Warn("cache snapshot failed", "error", err)
			}
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishBusSnapshot(ctx, snap); err != nil {
			slog.Warn("publish snapshot failed", "error", err)
		}
		for i := range snap.Markers {
			if err := s.publisher.PublishBusPosition(ctx, &snap.Markers[i]); err != nil {
				slog.Warn("publish position failed", "bus_id", snap.Markers[i].BusID, "error", err)
				break
			}
		}
	}

	if s.onSnapshot != nil {
		s.onSnapshot(ctx, snap)
	}
}

// RestoreLastGood loads the persisted snapshot, if one exists, and hands it
// to onSnapshot so a restarted service renders something before its first
// poll completes.
func (s *SnapshotService) RestoreLastGood(ctx context.Context) {
	if s.cache == nil || s.onSnapshot == nil {
		return
	}
	data, err := s.cache.Get(ctx, snapshotCacheKey)
	if err != nil {
		return
	}
	var snap domain.BusSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return
	}
	s.onSnapshot(ctx, &snap)
}
