package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transitlens",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "transitlens",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Live feed metrics
	FeedPollDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "transitlens",
		Subsystem: "feed",
		Name:      "poll_duration_seconds",
		Help:      "Duration of one upstream poll tick",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"feed"})

	FeedPollErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transitlens",
		Subsystem: "feed",
		Name:      "poll_errors_total",
		Help:      "Total upstream poll failures (loop keeps ticking)",
	}, []string{"feed"})

	StaleResultsDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transitlens",
		Subsystem: "feed",
		Name:      "stale_results_discarded_total",
		Help:      "Late poll results discarded because a newer request had started",
	}, []string{"feed"})

	// Coordinate pipeline metrics
	CoordinatesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transitlens",
		Subsystem: "geo",
		Name:      "coordinates_rejected_total",
		Help:      "Raw coordinate records dropped during normalization or dedupe",
	}, []string{"source"})

	MarkersProjected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "transitlens",
		Subsystem: "geo",
		Name:      "markers_projected",
		Help:      "Markers in the latest projected bus snapshot",
	})

	SnapshotAgeSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "transitlens",
		Subsystem: "feed",
		Name:      "snapshot_age_seconds",
		Help:      "Age of the latest applied bus snapshot",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "transitlens",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transitlens",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transitlens",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
