package http

import (
	"github.com/nats-io/nats.go"

	"github.com/adityaverma/transitlens/internal/adapters/valkey"
	"github.com/adityaverma/transitlens/internal/core/ports"
	"github.com/adityaverma/transitlens/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Routes *usecases.RouteService
	Render *usecases.RenderService
	ETA    *usecases.ETAService
	Feed   ports.TransitFeed
	NATS   *nats.Conn
	Cache  *valkey.Cache
}
