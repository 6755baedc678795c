// Package upstream implements ports.TransitFeed against the backend transit
// API over HTTP/JSON.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adityaverma/transitlens/internal/core/domain"
	"github.com/adityaverma/transitlens/internal/core/ports"
)

// Client talks to the backend transit API. Requests carry no client-side
// timeout; cancellation comes from the caller's context, so a poll cycle that
// outlives its successor is discarded rather than raced against a deadline.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ ports.TransitFeed = (*Client)(nil)

// New creates a feed client for the given base URL, e.g.
// "http://localhost:8001/api".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

func (c *Client) LiveBuses(ctx context.Context) ([]domain.RawBusRecord, error) {
	var buses []domain.RawBusRecord
	if err := c.getJSON(ctx, c.baseURL+"/buses/live", &buses); err != nil {
		return nil, fmt.Errorf("live buses: %w", err)
	}
	return buses, nil
}

func (c *Client) SearchRoutes(ctx context.Context, query string) ([]domain.RawRoute, error) {
	u := c.baseURL + "/routes/search"
	if query != "" {
		u += "?q=" + url.QueryEscape(query)
	}
	var routes []domain.RawRoute
	if err := c.getJSON(ctx, u, &routes); err != nil {
		return nil, fmt.Errorf("search routes: %w", err)
	}
	return routes, nil
}

func (c *Client) BusETA(ctx context.Context, busID string) (*domain.BusETA, error) {
	var eta domain.BusETA
	if err := c.getJSON(ctx, c.baseURL+"/eta/"+url.PathEscape(busID), &eta); err != nil {
		return nil, fmt.Errorf("eta for %s: %w", busID, err)
	}
	if eta.BusID == "" {
		eta.BusID = busID
	}
	eta.FetchedAt = time.Now().UTC()
	return &eta, nil
}

// Ping checks backend reachability. Any response at all counts: a backend
// answering 5xx is reachable but unhealthy, and readiness should say so.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/buses/live", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("ping: HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}
