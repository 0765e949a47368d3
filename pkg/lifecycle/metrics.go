package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeline_lifecycle_transitions_total",
			Help: "Lifecycle state transitions",
		},
		[]string{"from", "to"},
	)

	running = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lifeline_lifecycle_running",
		Help: "Number of lifecycles currently running",
	})
)

func recordTransition(from, to State) {
	transitions.WithLabelValues(from.String(), to.String()).Inc()
	switch {
	case to == StateRunning:
		running.Inc()
	case from == StateRunning:
		running.Dec()
	}
}
