package observer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeline_observer_notifications_total",
			Help: "Handler invocations by phase",
		},
		[]string{"phase"},
	)

	failures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeline_observer_failures_total",
			Help: "Failed handler invocations by phase and failure kind",
		},
		[]string{"phase", "kind"},
	)

	notifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifeline_observer_notify_duration_seconds",
			Help:    "Time from fan-out to the last handler settling, by phase",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
)

// Failure kinds used as metric labels.
const (
	kindError    = "error"
	kindPanic    = "panic"
	kindTimeout  = "timeout"
	kindCanceled = "canceled"
)

func recordFailure(p Phase, kind string) {
	failures.WithLabelValues(p.String(), kind).Inc()
}
