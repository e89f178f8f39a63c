package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	readingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulseguard_readings_total",
		Help: "Total number of readings processed, by reading type.",
	}, []string{"type"})

	parseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulseguard_parse_failures_total",
		Help: "Total number of payloads discarded as unparseable.",
	})

	alertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulseguard_alerts_total",
		Help: "Total number of candidate alerts produced, by severity.",
	}, []string{"severity"})

	alertsSuppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulseguard_alerts_suppressed_total",
		Help: "Total number of alerts suppressed, by reason.",
	}, []string{"reason"})

	escalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulseguard_escalations_total",
		Help: "Total number of emergency escalation sessions started.",
	})
)
