package shutdown

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lifeline_shutdown_operations_registered",
		Help: "Operations currently registered with shutdown coordinators",
	})

	executed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeline_shutdown_operations_executed_total",
			Help: "Shutdown operations executed by result",
		},
		[]string{"result"},
	)
)

const (
	resultOK    = "ok"
	resultError = "error"
	resultPanic = "panic"
)
