package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	"github.com/adityaverma/transitlens/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "buses" | "bus" | "map" (default: buses)
	ID      string `json:"id"`      // bus id for "bus", route id for "map"
}

// WebSocketHandler upgrades to WebSocket and relays live map events from NATS
// to the client. Clients send JSON like
// {"action":"subscribe","channel":"map","id":"r1"}.
// Every connection starts subscribed to the full bus snapshot stream.
// A "map" subscription also registers the route as watched, so composed
// render states keep flowing for it while anyone is listening.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription
		watched := make(map[string]bool)            // route ids registered with Render

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Every client gets the full snapshot stream by default.
		defaultSubject := "transit.buses.>"
		sub, err := deps.NATS.Subscribe(defaultSubject, func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		})
		if err != nil {
			slog.Warn("ws default subscribe failed", "error", err)
			return
		}
		subs[defaultSubject] = sub

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			channel := m.Channel
			if channel == "" {
				channel = "buses"
			}

			var subject string
			switch channel {
			case "buses":
				subject = "transit.buses.>"
			case "bus":
				if m.ID == "" {
					_ = writeJSON(map[string]string{"error": "bus channel needs an id"})
					continue
				}
				subject = "transit.bus." + m.ID
			case "map":
				if m.ID == "" {
					_ = writeJSON(map[string]string{"error": "map channel needs a route id"})
					continue
				}
				subject = "transit.render." + m.ID
			default:
				_ = writeJSON(map[string]string{"error": "unknown channel: " + channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := deps.NATS.Subscribe(subject, func(msg *nats.Msg) {
					_ = writeJSON(json.RawMessage(msg.Data))
				})
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				if channel == "map" && !watched[m.ID] {
					deps.Render.Watch(m.ID)
					watched[m.ID] = true
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					if channel == "map" && watched[m.ID] {
						deps.Render.Unwatch(m.ID)
						delete(watched, m.ID)
					}
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		// Cleanup
		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		for routeID := range watched {
			deps.Render.Unwatch(routeID)
		}
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
