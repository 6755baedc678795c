// The poller daemon owns the live feed: it polls the backend's bus snapshot
// endpoint, projects raw records into markers, persists the last good
// snapshot, and fans the result out over NATS for api replicas to consume.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/adityaverma/transitlens/internal/adapters/nats"
	"github.com/adityaverma/transitlens/internal/adapters/upstream"
	"github.com/adityaverma/transitlens/internal/adapters/valkey"
	"github.com/adityaverma/transitlens/internal/core/domain"
	"github.com/adityaverma/transitlens/internal/core/ports"
	"github.com/adityaverma/transitlens/internal/core/usecases"
	"github.com/adityaverma/transitlens/internal/pkg/config"
	"github.com/adityaverma/transitlens/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load("transitlens-poller")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("transitlens-poller", logLevel, "json")

	feed := upstream.New(cfg.Upstream.BaseURL)

	// NATS is the daemon's whole reason to exist; fail hard without it.
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	var cache ports.CacheService
	vk, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, snapshots will not survive restarts", "error", err)
	} else {
		defer vk.Close()
		cache = vk
	}

	snapSvc := usecases.NewSnapshotService(feed, cache, pub,
		cfg.Map.HighlightBusID,
		time.Duration(cfg.Upstream.BusPollSeconds)*time.Second,
		func(ctx context.Context, snap *domain.BusSnapshot) {
			slog.Debug("snapshot published", "markers", len(snap.Markers))
		})
	snapSvc.Start()

	slog.Info("poller started",
		"upstream", cfg.Upstream.BaseURL,
		"interval_s", cfg.Upstream.BusPollSeconds)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received", "signal", sig.String())

	// Stop discards any in-flight poll result before we drain NATS.
	snapSvc.Stop()
	slog.Info("poller stopped")
}
