package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Data freshness
	MetricSnapshotAge    = "feed.snapshot_age_seconds"
	MetricRenderLatency  = "render.compose_latency"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Pipeline health
	MetricPointsRejected = "geo.coordinates_rejected"
	MetricStaleDiscarded = "feed.stale_results_discarded"
)
