package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TTL cache metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ttlcache_lookups_total",
			Help: "TTL cache lookups by outcome",
		},
		[]string{"outcome"}, // outcome: hit, miss, expired, corrupt
	)

	CacheWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ttlcache_writes_total",
			Help: "Total number of entries written to the TTL cache",
		},
	)

	CacheClears = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ttlcache_clears_total",
			Help: "Total number of full cache wipes",
		},
	)

	CacheIndexedEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ttlcache_indexed_entries",
			Help: "Number of keys currently tracked by the cache index",
		},
	)

	// Key-value store metrics
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvstore_errors_total",
			Help: "Errors returned by the key-value store backend",
		},
		[]string{"backend", "op"}, // op: get, set, delete, keys
	)

	StoreAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kvstore_available",
			Help: "Whether the key-value store passed its availability probe (1) or not (0)",
		},
		[]string{"backend"},
	)

	// Upstream fetch metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "HTTP attempts made against the upstream movie API",
		},
		[]string{"status"}, // status: success, retry, failure
	)

	UpstreamRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Total number of upstream request retries",
		},
	)

	UpstreamBackoff = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upstream_backoff_seconds",
			Help:    "Backoff applied before an upstream retry",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_fetch_duration_seconds",
			Help:    "End-to-end duration of a fetch including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"}, // source: cache, network, error
	)

	UpstreamRateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_rate_limit_waits_total",
			Help: "Total number of times a fetch waited on the upstream limiter",
		},
	)

	UpstreamCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_coalesced_total",
			Help: "Fetches that shared an identical in-flight request",
		},
	)

	// Notification metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "User-facing notifications emitted",
		},
		[]string{"level"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of circuit breaker (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of times circuit breaker has tripped",
		},
		[]string{"service"},
	)

	// API response cache metrics
	APICacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_hits_total",
			Help: "Total number of API response cache hits",
		},
		[]string{"cache_type"},
	)

	APICacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_misses_total",
			Help: "Total number of API response cache misses",
		},
		[]string{"cache_type"},
	)

	APICacheSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_cache_size_bytes",
			Help: "Current size of API response cache in bytes",
		},
		[]string{"cache_type"},
	)

	APICacheItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_cache_items",
			Help: "Current number of items in API response cache",
		},
		[]string{"cache_type"},
	)

	APICacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_evictions_total",
			Help: "Total number of API response cache evictions",
		},
		[]string{"cache_type"},
	)

	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"route", "status"},
	)

	// Metrics collection error tracking
	MetricsCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_collection_errors_total",
			Help: "Total number of errors during metrics collection",
		},
		[]string{"collector"},
	)

	// WebSocket metrics
	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)
)
