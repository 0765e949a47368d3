package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeline_cli_commands_total",
			Help: "Command codes read from input by outcome",
		},
		[]string{"result"},
	)

	instances = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lifeline_cli_instances",
		Help: "Instances registered with CLI sessions",
	})

	sessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifeline_cli_sessions_total",
		Help: "CLI sessions created",
	})

	forcedShutdowns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifeline_cli_executor_forced_shutdowns_total",
		Help: "Executor stops that exceeded the orderly shutdown timeout",
	})
)

const (
	resultDispatched = "dispatched"
	resultUnknown    = "unknown"
	resultRejected   = "rejected"
)
