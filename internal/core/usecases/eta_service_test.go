package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adityaverma/transitlens/internal/core/domain"
	"github.com/adityaverma/transitlens/internal/core/usecases"
)

func TestETAService_GetStartsWatcher(t *testing.T) {
	var calls atomic.Int64
	feed := &mockFeed{
		busETAFn: func(ctx context.Context, busID string) (*domain.BusETA, error) {
			calls.Add(1)
			return &domain.BusETA{
				BusID:            busID,
				CurrentSpeedKmph: 30,
				Stops:            []domain.ETAStop{{Stop: "Majestic", DistanceMeters: 1000, ETASeconds: 120}},
			}, nil
		},
	}
	svc := usecases.NewETAService(feed, nil, 50*time.Millisecond, time.Minute)
	defer svc.Close()

	eta, err := svc.Get(context.Background(), "V2BMTC")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if eta.BusID != "V2BMTC" || len(eta.Stops) != 1 {
		t.Fatalf("unexpected eta: %+v", eta)
	}
	if svc.Watching() != 1 {
		t.Errorf("expected 1 watcher, got %d", svc.Watching())
	}

	// The watcher refreshes on its own without further Gets.
	before := calls.Load()
	time.Sleep(150 * time.Millisecond)
	if calls.Load() <= before {
		t.Error("expected background refreshes")
	}
}

func TestETAService_SecondBusGetsOwnWatcher(t *testing.T) {
	svc := usecases.NewETAService(&mockFeed{}, nil, time.Minute, time.Minute)
	defer svc.Close()

	ctx := context.Background()
	if _, err := svc.Get(ctx, "V1"); err != nil {
		t.Fatalf("Get V1: %v", err)
	}
	if _, err := svc.Get(ctx, "V2"); err != nil {
		t.Fatalf("Get V2: %v", err)
	}
	if _, err := svc.Get(ctx, "V1"); err != nil {
		t.Fatalf("Get V1 again: %v", err)
	}
	if svc.Watching() != 2 {
		t.Errorf("expected 2 watchers, got %d", svc.Watching())
	}
}

func TestETAService_IdleWatchersReaped(t *testing.T) {
	svc := usecases.NewETAService(&mockFeed{}, nil, time.Minute, 40*time.Millisecond)
	defer svc.Close()

	if _, err := svc.Get(context.Background(), "V1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if svc.Watching() != 1 {
		t.Fatalf("expected 1 watcher, got %d", svc.Watching())
	}

	deadline := time.After(2 * time.Second)
	for svc.Watching() != 0 {
		select {
		case <-deadline:
			t.Fatal("idle watcher was never reaped")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestETAService_ServesCachedPayloadWhileBackendDown(t *testing.T) {
	cache := newMockCache()
	cached, _ := json.Marshal(&domain.BusETA{
		BusID:            "V1",
		CurrentSpeedKmph: 22,
		Stops:            []domain.ETAStop{{Stop: "Shivajinagar", DistanceMeters: 400, ETASeconds: 65}},
	})
	if err := cache.Set(context.Background(), "eta:V1", cached, 10); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	feed := &mockFeed{
		busETAFn: func(ctx context.Context, busID string) (*domain.BusETA, error) {
			return nil, errors.New("backend down")
		},
	}
	svc := usecases.NewETAService(feed, cache, time.Minute, time.Minute)
	defer svc.Close()

	eta, err := svc.Get(context.Background(), "V1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if eta.CurrentSpeedKmph != 22 || len(eta.Stops) != 1 {
		t.Fatalf("expected cached eta, got %+v", eta)
	}
}

func TestETAService_RefreshWritesThroughToCache(t *testing.T) {
	cache := newMockCache()
	svc := usecases.NewETAService(&mockFeed{}, cache, time.Minute, time.Minute)
	defer svc.Close()

	if _, err := svc.Get(context.Background(), "V7"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if data, err := cache.Get(context.Background(), "eta:V7"); err == nil {
			var eta domain.BusETA
			if err := json.Unmarshal(data, &eta); err != nil {
				t.Fatalf("unmarshal cached eta: %v", err)
			}
			if eta.BusID != "V7" {
				t.Fatalf("unexpected cached eta: %+v", eta)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("refresher never wrote to the cache")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestETAService_GetAfterClose(t *testing.T) {
	feed := &mockFeed{
		busETAFn: func(ctx context.Context, busID string) (*domain.BusETA, error) {
			return &domain.BusETA{BusID: busID}, nil
		},
	}
	svc := usecases.NewETAService(feed, nil, time.Minute, time.Minute)
	svc.Close()

	eta, err := svc.Get(context.Background(), "V1")
	if err != nil {
		t.Fatalf("Get after Close: %v", err)
	}
	if eta.BusID != "V1" {
		t.Fatalf("unexpected eta: %+v", eta)
	}
	if svc.Watching() != 0 {
		t.Error("closed service should not start watchers")
	}
}
