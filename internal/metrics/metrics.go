package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache Metrics
var (
	// CacheHits tracks valid cache reads by data class
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits by data class",
		},
		[]string{"class"},
	)

	// CacheMisses tracks cache misses by data class
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses (absent or expired) by data class",
		},
		[]string{"class"},
	)

	// CacheStaleReads tracks reads served from expired entries via the fallback path
	CacheStaleReads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_stale_reads_total",
			Help: "Total stale-fallback reads of expired entries",
		},
	)

	// CacheEvictions tracks entries reclaimed by the background sweep
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total entries removed by the background sweep",
		},
	)

	// CacheEntries tracks current number of entries (valid + stale retained)
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cache entries including stale retained ones",
		},
	)

	// CacheBytes tracks approximate cached payload size
	CacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_bytes_approx",
			Help: "Approximate total size of cached payloads in bytes",
		},
	)

	// CacheInvalidations tracks explicit invalidations by kind (single/pattern)
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Total explicit cache invalidations by kind",
		},
		[]string{"kind"},
	)
)

// Upstream Fetch Metrics
var (
	// FetchRequestsTotal tracks upstream fetches by result (hit/fetched/stale_fallback/error)
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_requests_total",
			Help: "Total read-through fetches by result (cache_hit/fetched/stale_fallback/error)",
		},
		[]string{"result"},
	)

	// FetchDuration tracks upstream HTTP request latency
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fetch_duration_seconds",
			Help:    "Upstream HTTP fetch duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// FetchBreakerState tracks the upstream circuit breaker state (0=closed, 1=half-open, 2=open)
	FetchBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fetch_circuit_breaker_state",
			Help: "Upstream circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// Live Update Client Metrics
var (
	// LiveConnectionState tracks the connection state machine (0=connecting, 1=connected, 2=reconnecting, 3=closed)
	LiveConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_connection_state",
			Help: "Live feed connection state (0=connecting, 1=connected, 2=reconnecting, 3=closed)",
		},
	)

	// LiveReconnectionsTotal tracks reconnection attempts after a transport drop
	LiveReconnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_reconnections_total",
			Help: "Total live feed reconnection attempts after disconnect",
		},
	)

	// LiveFramesReceived tracks inbound frames by message type
	LiveFramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_frames_received_total",
			Help: "Total inbound live frames by message type",
		},
		[]string{"type"},
	)

	// LiveDispatchErrors tracks listener panics recovered during dispatch
	LiveDispatchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_dispatch_errors_total",
			Help: "Total listener errors recovered during frame dispatch",
		},
	)

	// LiveActiveTopics tracks topics with at least one listener
	LiveActiveTopics = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_active_topics",
			Help: "Number of topics with at least one active listener",
		},
	)
)

// Projection Engine Metrics
var (
	// ProjectionRequestsTotal tracks compute requests by operation and result
	ProjectionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projection_requests_total",
			Help: "Total projection compute requests by operation and result (success/error)",
		},
		[]string{"operation", "result"},
	)

	// ProjectionDuration tracks compute handler latency by operation
	ProjectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "projection_duration_seconds",
			Help:    "Projection compute duration in seconds by operation",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"operation"},
	)

	// ProjectionPanicsTotal tracks handler panic recoveries
	ProjectionPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "projection_panics_total",
			Help: "Total projection handler panic recoveries",
		},
	)
)
