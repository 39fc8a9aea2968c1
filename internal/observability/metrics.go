package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	operationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "engine",
		Name:      "operations_total",
		Help:      "Workout manager operations grouped by operation and outcome.",
	}, []string{"operation", "outcome"})

	workoutsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapty",
		Subsystem: "engine",
		Name:      "workouts",
		Help:      "Number of workouts currently held by the manager.",
	})

	persistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapty",
		Subsystem: "engine",
		Name:      "last_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful save of the workout list.",
	})

	geocodeFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "geocode",
		Name:      "failures_total",
		Help:      "Number of reverse-geocoding lookups that failed.",
	})

	publishedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Number of workout change events written to Kafka.",
	}, []string{"event_type"})

	publishFailedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "events",
		Name:      "failed_total",
		Help:      "Number of workout change events that could not be written.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(
		operationCounter,
		workoutsGauge,
		persistGauge,
		geocodeFailureCounter,
		publishedCounter,
		publishFailedCounter,
	)
}

// RecordOperation counts a manager operation as "ok" or "error".
func RecordOperation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	operationCounter.WithLabelValues(operation, outcome).Inc()
}

// SetWorkoutCount reports the current list size.
func SetWorkoutCount(n int) {
	workoutsGauge.Set(float64(n))
}

// RecordPersisted updates the persistence watermark gauge.
func RecordPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	persistGauge.Set(float64(ts.Unix()))
}

// RecordGeocodeFailure counts a failed location lookup.
func RecordGeocodeFailure() {
	geocodeFailureCounter.Inc()
}

// RecordEventPublished counts a delivered change event.
func RecordEventPublished(eventType string) {
	publishedCounter.WithLabelValues(eventType).Inc()
}

// RecordEventFailed counts a change event that could not be delivered.
func RecordEventFailed(eventType string) {
	publishFailedCounter.WithLabelValues(eventType).Inc()
}
