// Package metrics provides Prometheus metrics for the scoreboard engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scoreboard"

// Latency buckets in milliseconds, tuned for remote store round trips.
var latencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

// Backing store client metrics.
var (
	storeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "requests_total",
		Help:      "Backing store requests by operation and result code.",
	}, []string{"op", "code"})

	storeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "request_duration_ms",
		Help:      "Backing store request latency in milliseconds.",
		Buckets:   latencyBuckets,
	}, []string{"op"})

	storeRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "retries_total",
		Help:      "Transient-failure retries issued by the store client.",
	})
)

// Snapshot cache metrics.
var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Snapshot cache hits.",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Snapshot cache misses triggering a rebuild.",
	})

	cacheRebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "rebuild_duration_ms",
		Help:      "Snapshot rebuild duration in milliseconds.",
		Buckets:   latencyBuckets,
	})

	cacheStaleServed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "stale_served_total",
		Help:      "Snapshots served stale after a failed rebuild.",
	})

	snapshotParticipants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "participants",
		Help:      "Participant rows in the latest snapshot per table.",
	}, []string{"table"})
)

// Debounced synchronizer metrics.
var (
	syncEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "events_total",
		Help:      "Score events accepted by the synchronizer.",
	})

	syncCollapsed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "collapsed_total",
		Help:      "Pending payloads superseded before flushing.",
	})

	syncFlushes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "flushes_total",
		Help:      "Writes issued to the backing store.",
	})

	syncFlushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "flush_errors_total",
		Help:      "Failed flushes that were requeued.",
	})

	syncPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "pending_writes",
		Help:      "Usernames with a suppressed write waiting to flush.",
	})
)

// Rank engine metrics.
var (
	rankComputations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rank",
		Name:      "computations_total",
		Help:      "Full standings computations.",
	})

	rankDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rank",
		Name:      "duration_ms",
		Help:      "Standings computation duration in milliseconds.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 50, 100},
	})
)

// HTTP metrics.
var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   latencyBuckets,
	}, []string{"route", "method"})
)

// Store helpers.

func RecordStoreRequest(op, code string, durationMS float64) {
	storeRequests.WithLabelValues(op, code).Inc()
	storeRequestDuration.WithLabelValues(op).Observe(durationMS)
}

func RecordStoreRetry() { storeRetries.Inc() }

// Cache helpers.

func RecordCacheHit()  { cacheHits.Inc() }
func RecordCacheMiss() { cacheMisses.Inc() }

func RecordCacheRebuild(durationMS float64) { cacheRebuildDuration.Observe(durationMS) }
func RecordCacheStaleServed()               { cacheStaleServed.Inc() }

func UpdateSnapshotParticipants(table string, n int) {
	snapshotParticipants.WithLabelValues(table).Set(float64(n))
}

// Synchronizer helpers.

func RecordSyncEvent()     { syncEvents.Inc() }
func RecordSyncCollapsed() { syncCollapsed.Inc() }
func RecordSyncFlush()     { syncFlushes.Inc() }

func RecordSyncFlushError() { syncFlushErrors.Inc() }

func UpdateSyncPending(delta int) { syncPending.Add(float64(delta)) }

// Rank helpers.

func RecordRankComputation(durationMS float64) {
	rankComputations.Inc()
	rankDuration.Observe(durationMS)
}

// HTTP helpers.

func RecordHTTPRequest(route, method, code string, durationMS float64) {
	httpRequests.WithLabelValues(route, method, code).Inc()
	httpRequestDuration.WithLabelValues(route, method).Observe(durationMS)
}
