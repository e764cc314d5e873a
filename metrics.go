package wanikache

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the client's fetch
// lifecycle and caching layers. All recorders are nil-safe so a client
// without metrics pays only a nil check. Safe for concurrent use.
type MetricsCollector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	retriesTotal   *prometheus.CounterVec
	staleFallbacks *prometheus.CounterVec

	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	cacheEvictions  prometheus.Counter
	cacheCorruption prometheus.Counter
	cacheSkips      *prometheus.CounterVec
	cacheSizeBytes  prometheus.Gauge

	inflightMerged prometheus.Counter

	schedulerQueueDepth prometheus.Gauge

	errorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wanikache_requests_total",
				Help: "Total number of API requests made",
			},
			[]string{"endpoint", "status_code"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wanikache_request_duration_seconds",
				Help:    "Duration of API fetches in seconds, including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wanikache_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"endpoint", "attempt"},
		),
		staleFallbacks: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wanikache_stale_fallbacks_total",
				Help: "Total number of fetches served stale after retries exhausted",
			},
			[]string{"endpoint"},
		),
		cacheHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wanikache_cache_hits_total",
				Help: "Total number of fresh cache hits",
			},
			[]string{"endpoint"},
		),
		cacheMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wanikache_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"endpoint"},
		),
		cacheEvictions: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "wanikache_cache_evictions_total",
				Help: "Total number of entries evicted under quota pressure",
			},
		),
		cacheCorruption: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "wanikache_cache_corruption_total",
				Help: "Total number of corrupt cache entries discarded",
			},
		),
		cacheSkips: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wanikache_cache_skips_total",
				Help: "Total number of cache writes skipped",
			},
			[]string{"reason"},
		),
		cacheSizeBytes: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "wanikache_cache_size_bytes",
				Help: "Total serialized size of cached entries",
			},
		),
		inflightMerged: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "wanikache_inflight_merged_total",
				Help: "Total number of fetches merged into an in-flight request",
			},
		),
		schedulerQueueDepth: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "wanikache_scheduler_queue_depth",
				Help: "Number of fetches waiting for a scheduler slot",
			},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wanikache_errors_total",
				Help: "Total number of typed errors surfaced",
			},
			[]string{"type", "endpoint"},
		),
	}
}

// RecordRequest counts one finished fetch.
func (mc *MetricsCollector) RecordRequest(endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.requestsTotal.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	mc.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRetry counts one retry attempt.
func (mc *MetricsCollector) RecordRetry(endpoint string, attempt int) {
	if mc == nil {
		return
	}
	mc.retriesTotal.WithLabelValues(endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordStaleFallback counts a fetch answered from stale cache after retries
// exhausted.
func (mc *MetricsCollector) RecordStaleFallback(endpoint string) {
	if mc == nil {
		return
	}
	mc.staleFallbacks.WithLabelValues(endpoint).Inc()
}

// RecordCacheHit increments the fresh-hit counter.
func (mc *MetricsCollector) RecordCacheHit(endpoint string) {
	if mc == nil {
		return
	}
	mc.cacheHits.WithLabelValues(endpoint).Inc()
}

// RecordCacheMiss increments the miss counter.
func (mc *MetricsCollector) RecordCacheMiss(endpoint string) {
	if mc == nil {
		return
	}
	mc.cacheMisses.WithLabelValues(endpoint).Inc()
}

// RecordCacheEviction counts one evicted entry.
func (mc *MetricsCollector) RecordCacheEviction() {
	if mc == nil {
		return
	}
	mc.cacheEvictions.Inc()
}

// RecordCacheCorruption counts one discarded unparseable entry.
func (mc *MetricsCollector) RecordCacheCorruption() {
	if mc == nil {
		return
	}
	mc.cacheCorruption.Inc()
}

// RecordCacheSkip counts one skipped cache write by reason.
func (mc *MetricsCollector) RecordCacheSkip(reason string) {
	if mc == nil {
		return
	}
	mc.cacheSkips.WithLabelValues(reason).Inc()
}

// RecordCacheSize sets the total cached bytes gauge.
func (mc *MetricsCollector) RecordCacheSize(bytes int64) {
	if mc == nil {
		return
	}
	mc.cacheSizeBytes.Set(float64(bytes))
}

// RecordInflightMerge counts a caller joined onto an in-flight fetch.
func (mc *MetricsCollector) RecordInflightMerge() {
	if mc == nil {
		return
	}
	mc.inflightMerged.Inc()
}

// RecordSchedulerQueueDepth sets the waiting-task gauge.
func (mc *MetricsCollector) RecordSchedulerQueueDepth(depth int) {
	if mc == nil {
		return
	}
	mc.schedulerQueueDepth.Set(float64(depth))
}

// RecordError increments error counter by type.
func (mc *MetricsCollector) RecordError(errorType, endpoint string) {
	if mc == nil {
		return
	}
	mc.errorsTotal.WithLabelValues(errorType, endpoint).Inc()
}
