package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/adityaverma/transitlens/internal/adapters/http"
	natsadapter "github.com/adityaverma/transitlens/internal/adapters/nats"
	"github.com/adityaverma/transitlens/internal/adapters/upstream"
	"github.com/adityaverma/transitlens/internal/adapters/valkey"
	"github.com/adityaverma/transitlens/internal/core/domain"
	"github.com/adityaverma/transitlens/internal/core/ports"
	"github.com/adityaverma/transitlens/internal/core/usecases"
	"github.com/adityaverma/transitlens/internal/pkg/config"
	"github.com/adityaverma/transitlens/internal/pkg/logging"
	"github.com/adityaverma/transitlens/internal/pkg/telemetry"
)

// cacheService avoids handing a typed-nil *valkey.Cache to code that checks
// the interface against nil.
func cacheService(c *valkey.Cache) ports.CacheService {
	if c == nil {
		return nil
	}
	return c
}

func eventPublisher(p *natsadapter.Publisher) ports.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}

func main() {
	cfg, err := config.Load("transitlens-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("transitlens-api", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Backend transit feed
	feed := upstream.New(cfg.Upstream.BaseURL)

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// NATS publisher (for render state fan-out to watched routes)
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
		pub = nil
	} else {
		defer pub.Close()
	}

	// Raw NATS connection for the WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Use cases
	anchor := domain.GeoPoint{Lat: cfg.Map.AnchorLat, Lng: cfg.Map.AnchorLng}
	routeSvc := usecases.NewRouteService(feed, cacheService(cache), cfg.Map.DedupeEpsilon, anchor, cfg.Map.BoundsPadding)
	renderSvc := usecases.NewRenderService(routeSvc, eventPublisher(pub))
	etaSvc := usecases.NewETAService(feed, cacheService(cache),
		time.Duration(cfg.Upstream.ETAPollSeconds)*time.Second,
		time.Duration(cfg.Upstream.ETAIdleSeconds)*time.Second)
	defer etaSvc.Close()

	// Snapshot intake: prefer the broker feed from the poller daemon, fall
	// back to polling the backend directly so a standalone API still works.
	snapshotsFromBroker := false
	if cfg.NATS.URL != "" {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("snapshot subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			err := sub.SubscribeBusSnapshots(ctx, func(ctx context.Context, snap *domain.BusSnapshot) error {
				renderSvc.ApplySnapshot(ctx, snap)
				return nil
			})
			if err != nil {
				slog.Warn("snapshot subscribe failed", "error", err)
			} else {
				snapshotsFromBroker = true
				slog.Info("consuming bus snapshots from broker")
			}
		}
	}

	if !snapshotsFromBroker && cfg.Upstream.PollLiveBuses {
		snapSvc := usecases.NewSnapshotService(feed, cacheService(cache), nil,
			cfg.Map.HighlightBusID,
			time.Duration(cfg.Upstream.BusPollSeconds)*time.Second,
			renderSvc.ApplySnapshot)
		snapSvc.RestoreLastGood(ctx)
		snapSvc.Start()
		defer snapSvc.Stop()
		slog.Info("polling live buses directly", "interval_s", cfg.Upstream.BusPollSeconds)
	}

	deps := &http.Dependencies{
		Routes: routeSvc,
		Render: renderSvc,
		ETA:    etaSvc,
		Feed:   feed,
		NATS:   natsConn,
		Cache:  cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "TransitLens API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
