package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/adityaverma/transitlens/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist. Snapshots supersede each other, so a short
	// retention window is enough.
	streams := []nats.StreamConfig{
		{
			Name:      "BUS_SNAPSHOTS",
			Subjects:  []string{"transit.buses.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    5 * time.Minute,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "BUS_POSITIONS",
			Subjects:  []string{"transit.bus.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    5 * time.Minute,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishBusSnapshot(ctx context.Context, snap *domain.BusSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("transit.buses.snapshot", data)
	return err
}

func (p *Publisher) PublishBusPosition(ctx context.Context, pos *domain.BusPosition) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("transit.bus."+pos.BusID, data)
	return err
}

// PublishRenderState fans a composed map state out over core NATS. Render
// states are ephemeral; subscribers that miss one pick up the next tick.
func (p *Publisher) PublishRenderState(ctx context.Context, state *domain.RenderState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return p.conn.Publish("transit.render."+state.RouteID, data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
