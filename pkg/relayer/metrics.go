package relayer

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSucceeded = "succeeded"
	outcomeSkipped   = "skipped"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

// Metrics are the prometheus metrics of an orchestrator.
type Metrics struct {
	Ticks       prometheus.Counter
	TickErrors  prometheus.Counter
	Retries     prometheus.Counter
	Submissions *prometheus.CounterVec
	Cycle       prometheus.Gauge
	Phase       *prometheus.GaugeVec
}

// NewMetrics creates unregistered metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cycled",
			Subsystem: "relayer",
			Name:      "ticks_total",
			Help:      "The number of poll ticks.",
		}),
		TickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cycled",
			Subsystem: "relayer",
			Name:      "tick_errors_total",
			Help:      "The number of ticks that ended with an error.",
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cycled",
			Subsystem: "relayer",
			Name:      "retries_total",
			Help:      "The number of retried ledger requests.",
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cycled",
			Subsystem: "relayer",
			Name:      "submissions_total",
			Help:      "The number of submitted transactions by action and outcome.",
		}, []string{"action", "outcome"}),
		Cycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cycled",
			Subsystem: "relayer",
			Name:      "cycle",
			Help:      "The contest cycle observed by the last tick.",
		}),
		Phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cycled",
			Subsystem: "relayer",
			Name:      "phase",
			Help:      "The contest phase observed by the last tick.",
		}, []string{"phase"}),
	}
}

// Register registers all metrics with registerer.
func (m *Metrics) Register(registerer prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{m.Ticks, m.TickErrors, m.Retries, m.Submissions, m.Cycle, m.Phase} {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}
	return nil
}
