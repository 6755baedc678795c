//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/adityaverma/transitlens/internal/adapters/http"
	natsadapter "github.com/adityaverma/transitlens/internal/adapters/nats"
	"github.com/adityaverma/transitlens/internal/adapters/upstream"
	"github.com/adityaverma/transitlens/internal/adapters/valkey"
	"github.com/adityaverma/transitlens/internal/core/domain"
	"github.com/adityaverma/transitlens/internal/core/usecases"
	"github.com/adityaverma/transitlens/internal/pkg/config"
)

// fakeBackend serves a minimal transit API for the pipeline to consume.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/api/buses/live", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Write([]byte(`[{"bus_id":"V1","route_id":"r1","latitude":12.97,"longitude":77.59,"crowd_level":"low"}]`))
	})
	mux.HandleFunc("/api/routes/search", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Write([]byte(`[{"id":"r1","route_number":"335E","route_name":"Majestic - Whitefield",
			"coordinates":[{"lat":12.97,"lng":77.57},{"lat":12.98,"lng":77.60}]}]`))
	})
	mux.HandleFunc("/api/eta/", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Write([]byte(`{"current_speed_kmph":30,"eta":[{"stop":"Majestic","distance_meters":900,"eta_seconds":108}]}`))
	})
	return httptest.NewServer(mux)
}

// TestPipelineEndToEnd runs poll -> publish -> subscribe -> compose against a
// real NATS and Valkey from config.
func TestPipelineEndToEnd(t *testing.T) {
	cfg, err := config.Load("transitlens-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	backend := fakeBackend(t)
	defer backend.Close()
	feed := upstream.New(backend.URL + "/api")

	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		t.Skipf("valkey unavailable: %v", err)
	}
	defer cache.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		t.Skipf("nats unavailable: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		t.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	anchor := domain.GeoPoint{Lat: cfg.Map.AnchorLat, Lng: cfg.Map.AnchorLng}
	routes := usecases.NewRouteService(feed, cache, cfg.Map.DedupeEpsilon, anchor, cfg.Map.BoundsPadding)
	render := usecases.NewRenderService(routes, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sub.SubscribeBusSnapshots(ctx, func(ctx context.Context, snap *domain.BusSnapshot) error {
		render.ApplySnapshot(ctx, snap)
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	snapSvc := usecases.NewSnapshotService(feed, cache, pub, "", time.Second, nil)
	snapSvc.Start()
	defer snapSvc.Stop()

	// Wait for a snapshot to cross the broker.
	deadline := time.After(10 * time.Second)
	for {
		if _, ok := render.Snapshot(); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no snapshot arrived over NATS")
		case <-time.After(50 * time.Millisecond):
		}
	}

	eta := usecases.NewETAService(feed, cache, time.Minute, time.Minute)
	defer eta.Close()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, &handler.Dependencies{
		Routes: routes,
		Render: render,
		ETA:    eta,
		Feed:   feed,
		Cache:  cache,
	})

	req := httptest.NewRequest("GET", "/v1/routes/r1/map", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var state domain.RenderState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	if len(state.Polyline) != 2 {
		t.Errorf("expected sanitized polyline, got %d points", len(state.Polyline))
	}
	if len(state.Markers) != 1 || state.Markers[0].BusID != "V1" {
		t.Errorf("expected live marker from broker, got %+v", state.Markers)
	}
}
