package usecases_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/adityaverma/transitlens/internal/core/domain"
	"github.com/adityaverma/transitlens/internal/core/usecases"
)

type snapCollector struct {
	mu    sync.Mutex
	snaps []*domain.BusSnapshot
}

func (c *snapCollector) collect(_ context.Context, snap *domain.BusSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps = append(c.snaps, snap)
}

func (c *snapCollector) all() []*domain.BusSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*domain.BusSnapshot(nil), c.snaps...)
}

func TestSnapshotService_ProjectsAndDelivers(t *testing.T) {
	feed := &mockFeed{
		liveBusesFn: func(ctx context.Context) ([]domain.RawBusRecord, error) {
			return []domain.RawBusRecord{
				{BusID: "V1", RouteID: "r1", Latitude: 12.97, Longitude: 77.59},
				{BusID: "V2", RouteID: "r1", Latitude: "13.00", Longitude: "77.60"},
				{BusID: "V3", RouteID: "r1", Latitude: "garbage", Longitude: 77.61},
			}, nil
		},
	}
	col := &snapCollector{}
	svc := usecases.NewSnapshotService(feed, nil, nil, "V2", time.Hour, col.collect)
	svc.Start()
	defer svc.Stop()

	deadline := time.After(2 * time.Second)
	for len(col.all()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no snapshot delivered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	snap := col.all()[0]
	if len(snap.Markers) != 2 {
		t.Fatalf("expected 2 markers (garbage record dropped), got %d", len(snap.Markers))
	}
	var highlighted int
	for _, m := range snap.Markers {
		if m.Highlighted {
			highlighted++
			if m.BusID != "V2" {
				t.Errorf("wrong bus highlighted: %s", m.BusID)
			}
		}
	}
	if highlighted != 1 {
		t.Errorf("expected exactly 1 highlighted marker, got %d", highlighted)
	}

	if latest, ok := svc.Latest(); !ok || len(latest.Markers) != 2 {
		t.Error("Latest should expose the applied snapshot")
	}
}

func TestSnapshotService_PublishesAndCaches(t *testing.T) {
	feed := &mockFeed{
		liveBusesFn: func(ctx context.Context) ([]domain.RawBusRecord, error) {
			return []domain.RawBusRecord{
				{BusID: "V1", RouteID: "r1", Latitude: 12.97, Longitude: 77.59},
			}, nil
		},
	}
	cache := newMockCache()
	pub := &mockPublisher{}
	svc := usecases.NewSnapshotService(feed, cache, pub, "", time.Hour, nil)
	svc.Start()
	defer svc.Stop()

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := svc.Latest(); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no snapshot applied")
		case <-time.After(10 * time.Millisecond):
		}
	}

	data, err := cache.Get(context.Background(), "buses:latest")
	if err != nil {
		t.Fatal("expected last-good snapshot in cache")
	}
	var cached domain.BusSnapshot
	if err := json.Unmarshal(data, &cached); err != nil {
		t.Fatalf("cached snapshot not valid JSON: %v", err)
	}
	if len(cached.Markers) != 1 || cached.Markers[0].BusID != "V1" {
		t.Fatalf("unexpected cached snapshot: %+v", cached)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.snapshots) == 0 {
		t.Error("expected snapshot published to broker")
	}
	if len(pub.positions) == 0 {
		t.Error("expected per-bus positions published")
	}
}

func TestSnapshotService_RestoreLastGood(t *testing.T) {
	cache := newMockCache()
	seed := &domain.BusSnapshot{
		TakenAt: time.Now().Add(-time.Minute),
		Markers: []domain.BusPosition{{BusID: "V7", Location: domain.GeoPoint{Lat: 12.9, Lng: 77.5}}},
	}
	data, _ := json.Marshal(seed)
	_ = cache.Set(context.Background(), "buses:latest", data, 0)

	col := &snapCollector{}
	svc := usecases.NewSnapshotService(&mockFeed{}, cache, nil, "", time.Hour, col.collect)
	svc.RestoreLastGood(context.Background())

	snaps := col.all()
	if len(snaps) != 1 {
		t.Fatalf("expected restored snapshot delivered, got %d", len(snaps))
	}
	if snaps[0].Markers[0].BusID != "V7" {
		t.Fatalf("unexpected restored snapshot: %+v", snaps[0])
	}
}
