// Package poller provides a recurring-fetch primitive: poll an endpoint on a
// fixed interval, keep the latest successful payload, and tolerate transient
// failures without tearing down the loop. Lifetime is owned by the caller
// through the returned Handle rather than implied by anything else.
package poller

import (
	"context"
	"sync"
	"time"
)

// Fetch retrieves one payload. It receives the poller's context, which is
// cancelled when the handle is stopped; no other timeout is imposed, so a
// hung request stalls only its own tick.
type Fetch[T any] func(ctx context.Context) (T, error)

// Config wires one polling loop.
type Config[T any] struct {
	Interval time.Duration
	Fetch    Fetch[T]
	OnResult func(T)     // latest successfully fetched payload
	OnError  func(error) // transient failure; the loop keeps ticking
	OnStale  func()      // a late result was discarded (optional)
}

// Handle is a running polling loop. Stop is safe to call once from any
// goroutine; after it returns, no callback will be invoked again, including
// for requests that were in flight at cancellation time.
type Handle[T any] struct {
	cfg    Config[T]
	cancel context.CancelFunc

	mu        sync.Mutex
	seq       uint64 // sequence of the most recently started request
	stopped   bool
	latest    T
	hasLatest bool
}

// Start launches the loop. The first fetch fires immediately, subsequent ones
// on every interval tick. Each in-flight request carries a monotonically
// increasing sequence number; a result is applied only when no newer request
// has been started, so a slow tick n can never overwrite tick n+1.
func Start[T any](cfg Config[T]) *Handle[T] {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle[T]{cfg: cfg, cancel: cancel}
	go h.run(ctx)
	return h
}

func (h *Handle[T]) run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.Interval)
	defer ticker.Stop()

	h.launch(ctx)
	for {
		select {
		case <-ticker.C:
			h.launch(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// launch starts one tick's fetch without blocking the schedule: a hung fetch
// does not delay the next tick.
func (h *Handle[T]) launch(ctx context.Context) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.seq++
	seq := h.seq
	h.mu.Unlock()

	go func() {
		payload, err := h.cfg.Fetch(ctx)

		// Callbacks run under the lock so that Stop, once returned,
		// strictly happens-after the last callback. Callbacks must not
		// call back into the handle.
		h.mu.Lock()
		defer h.mu.Unlock()

		if h.stopped {
			return
		}
		if seq != h.seq {
			if h.cfg.OnStale != nil {
				h.cfg.OnStale()
			}
			return
		}
		if err != nil {
			// Last good payload survives: stale-but-valid display
			// beats blanking the UI.
			if h.cfg.OnError != nil {
				h.cfg.OnError(err)
			}
			return
		}

		h.latest = payload
		h.hasLatest = true
		if h.cfg.OnResult != nil {
			h.cfg.OnResult(payload)
		}
	}()
}

// Latest returns the most recently applied payload, if any tick has
// succeeded yet.
func (h *Handle[T]) Latest() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.hasLatest
}

// Stop halts the timer and cancels the in-flight request context. Any result
// that resolves afterwards is a no-op.
func (h *Handle[T]) Stop() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	h.cancel()
}
