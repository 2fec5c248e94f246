package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheHitCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard_service",
		Subsystem: "feed",
		Name:      "cache_hits_total",
		Help:      "Number of feed reads served from the memoized cache.",
	})
	cacheMissCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard_service",
		Subsystem: "feed",
		Name:      "cache_misses_total",
		Help:      "Number of feed reads that queried the activity store.",
	})
	invalidationCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard_service",
		Subsystem: "feed",
		Name:      "cache_invalidations_total",
		Help:      "Number of per-user cache invalidations applied.",
	})
	appendCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard_service",
		Subsystem: "feed",
		Name:      "activities_appended_total",
		Help:      "Number of activity records appended successfully.",
	})
	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dashboard_service",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity persisted to Postgres.",
	})
	intentSetCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard_service",
		Subsystem: "intent",
		Name:      "set_total",
		Help:      "Number of times the packages intent was marked pending.",
	})
	intentConsumedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard_service",
		Subsystem: "intent",
		Name:      "consumed_total",
		Help:      "Number of times a pending packages intent was consumed.",
	})
)

func init() {
	prometheus.MustRegister(
		cacheHitCounter,
		cacheMissCounter,
		invalidationCounter,
		appendCounter,
		activityPersistGauge,
		intentSetCounter,
		intentConsumedCounter,
	)
}

// RecordCacheHit counts a memoized feed read.
func RecordCacheHit() { cacheHitCounter.Inc() }

// RecordCacheMiss counts a feed read that reached the store.
func RecordCacheMiss() { cacheMissCounter.Inc() }

// RecordInvalidation counts a per-user cache invalidation.
func RecordInvalidation() { invalidationCounter.Inc() }

// RecordActivityAppended counts a successful append.
func RecordActivityAppended() { appendCounter.Inc() }

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// RecordIntentSet counts an intent set-event.
func RecordIntentSet() { intentSetCounter.Inc() }

// RecordIntentConsumed counts an intent consumption.
func RecordIntentConsumed() { intentConsumedCounter.Inc() }
