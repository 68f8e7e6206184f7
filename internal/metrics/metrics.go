package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "groovewatch",
			Subsystem: "watchdog",
			Name:      "cycles_total",
			Help:      "Number of collection cycles by kind and result.",
		}, []string{"kind", "result"},
	)
	recordsAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "groovewatch",
			Subsystem: "history",
			Name:      "records_appended_total",
			Help:      "Records appended to a history log.",
		}, []string{"log"},
	)
	recordsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "groovewatch",
			Subsystem: "history",
			Name:      "records_skipped_total",
			Help:      "Duplicate records skipped on ingest.",
		}, []string{"log"},
	)
	recordsPurged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "groovewatch",
			Subsystem: "history",
			Name:      "records_purged_total",
			Help:      "Records dropped by retention.",
		}, []string{"log"},
	)
	consecutiveFailures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "groovewatch",
			Subsystem: "watchdog",
			Name:      "consecutive_failures",
			Help:      "Consecutive failed cycles since the last success.",
		},
	)
	cycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "groovewatch",
			Subsystem: "watchdog",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a collection cycle.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{cycles, recordsAppended, recordsSkipped, recordsPurged, consecutiveFailures, cycleDuration}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncCycle(kind, result string) {
	if regOK.Load() {
		cycles.WithLabelValues(kind, result).Inc()
	}
}

func AddIngest(log string, appended, skipped, purged int) {
	if regOK.Load() {
		recordsAppended.WithLabelValues(log).Add(float64(appended))
		recordsSkipped.WithLabelValues(log).Add(float64(skipped))
		recordsPurged.WithLabelValues(log).Add(float64(purged))
	}
}

func SetConsecutiveFailures(n int) {
	if regOK.Load() {
		consecutiveFailures.Set(float64(n))
	}
}

func ObserveCycleDuration(kind string, seconds float64) {
	if regOK.Load() {
		cycleDuration.WithLabelValues(kind).Observe(seconds)
	}
}
