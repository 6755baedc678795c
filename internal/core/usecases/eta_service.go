package usecases

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/adityaverma/transitlens/internal/core/domain"
	"github.com/adityaverma/transitlens/internal/core/ports"
	"github.com/adityaverma/transitlens/internal/pkg/metrics"
	"github.com/adityaverma/transitlens/internal/pkg/poller"
)

// ETA payloads go stale within one refresh period, so the shared cache keeps
// them only briefly. It mainly saves replicas without a live refresher a
// round-trip to the backend.
const etaTTL = 10

// etaWatcher is one bus's refreshing ETA view. lastAccess is guarded by the
// service mutex, not the watcher's.
type etaWatcher struct {
	handle     *poller.Handle[*domain.BusETA]
	lastAccess time.Time
}

// ETAService serves per-bus ETA tables. The first request for a bus starts a
// background refresher for it; buses nobody has asked about recently get
// their refreshers reaped.
type ETAService struct {
	feed     ports.TransitFeed
	cache    ports.CacheService // nil disables the shared cache
	interval time.Duration
	idle     time.Duration

	mu          sync.Mutex
	watchers    map[string]*etaWatcher
	closed      bool
	stopJanitor context.CancelFunc
}

// NewETAService creates a new ETAService and starts its janitor. interval is
// the per-bus refresh period, idle how long a bus may go unrequested before
// its refresher stops.
func NewETAService(feed ports.TransitFeed, cache ports.CacheService, interval, idle time.Duration) *ETAService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &ETAService{
		feed:        feed,
		cache:       cache,
		interval:    interval,
		idle:        idle,
		watchers:    make(map[string]*etaWatcher),
		stopJanitor: cancel,
	}
	go s.janitor(ctx)
	return s
}

// Get returns the current ETA table for a bus. Before the bus's refresher has
// completed a tick, the call falls through to the backend directly so the
// first request is never empty-handed.
func (s *ETAService) Get(ctx context.Context, busID string) (*domain.BusETA, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.feed.BusETA(ctx, busID)
	}
	w, ok := s.watchers[busID]
	if ok {
		w.lastAccess = time.Now()
	} else {
		w = &etaWatcher{
			handle:     s.startWatcher(busID),
			lastAccess: time.Now(),
		}
		s.watchers[busID] = w
	}
	s.mu.Unlock()

	if eta, ok := w.handle.Latest(); ok {
		return eta, nil
	}
	if eta, ok := s.cachedETA(ctx, busID); ok {
		return eta, nil
	}
	return s.feed.BusETA(ctx, busID)
}

func (s *ETAService) cachedETA(ctx context.Context, busID string) (*domain.BusETA, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, "eta:"+busID)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("eta").Inc()
		return nil, false
	}
	var eta domain.BusETA
	if err := json.Unmarshal(data, &eta); err != nil {
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("eta").Inc()
	return &eta, true
}

func (s *ETAService) startWatcher(busID string) *poller.Handle[*domain.BusETA] {
	return poller.Start(poller.Config[*domain.BusETA]{
		Interval: s.interval,
		Fetch: func(ctx context.Context) (*domain.BusETA, error) {
			start := time.Now()
			eta, err := s.feed.BusETA(ctx, busID)
			metrics.FeedPollDuration.WithLabelValues("eta").Observe(time.Since(start).Seconds())
			return eta, err
		},
		OnResult: func(eta *domain.BusETA) {
			if s.cache == nil {
				return
			}
			if data, err := json.Marshal(eta); err == nil {
				_ = s.cache.Set(context.Background(), "eta:"+busID, data, etaTTL)
			}
		},
		OnError: func(err error) {
			metrics.FeedPollErrors.WithLabelValues("eta").Inc()
			slog.Warn("eta refresh failed", "bus_id", busID, "error", err)
		},
		OnStale: func() {
			metrics.StaleResultsDiscarded.WithLabelValues("eta").Inc()
		},
	})
}

// janitor reaps refreshers for buses nobody has requested within the idle
// window.
func (s *ETAService) janitor(ctx context.Context) {
	ticker := time.NewTicker(s.idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.idle)
			var stale []*poller.Handle[*domain.BusETA]

			s.mu.Lock()
			for busID, w := range s.watchers {
				if w.lastAccess.Before(cutoff) {
					stale = append(stale, w.handle)
					delete(s.watchers, busID)
				}
			}
			s.mu.Unlock()

			// Stop blocks on in-flight callbacks, so it runs outside
			// the lock.
			for _, h := range stale {
				h.Stop()
			}
			if len(stale) > 0 {
				slog.Debug("reaped idle eta watchers", "count", len(stale))
			}
		}
	}
}

// Watching reports how many buses currently have live refreshers.
func (s *ETAService) Watching() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// Close stops the janitor and every refresher. Get still works afterwards,
// degraded to direct backend calls.
func (s *ETAService) Close() {
	s.stopJanitor()

	s.mu.Lock()
	handles := make([]*poller.Handle[*domain.BusETA], 0, len(s.watchers))
	for _, w := range s.watchers {
		handles = append(handles, w.handle)
	}
	s.watchers = make(map[string]*etaWatcher)
	s.closed = true
	s.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
}
