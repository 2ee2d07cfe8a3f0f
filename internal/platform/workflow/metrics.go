package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts workflow outcomes per kind and step.
type Metrics struct {
	outcomes *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abaranti",
			Subsystem: "workflow",
			Name:      "outcomes_total",
			Help:      "Stage and confirm outcomes by record kind.",
		}, []string{"kind", "step", "outcome"}),
	}
	reg.MustRegister(m.outcomes)
	return m
}

func (m *Metrics) observe(kind, step, outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(kind, step, outcome).Inc()
}
