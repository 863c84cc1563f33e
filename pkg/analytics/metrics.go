package analytics

import (
	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the analytics collectors. A nil *Metrics records nothing.
type Metrics struct {
	events   *prometheus.CounterVec
	pruned   prometheus.Counter
	retained prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lmrtfy_analytics_events_total",
				Help: "Total number of recorded analytics events",
			},
			[]string{"type"},
		),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lmrtfy_analytics_events_pruned_total",
			Help: "Total number of analytics events removed by cleanup",
		}),
		retained: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lmrtfy_analytics_events_retained",
			Help: "Number of events in the analytics log at the last read",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.pruned, m.retained)
	}
	return m
}

func (m *Metrics) recorded(t domain.EventType) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) prunedN(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pruned.Add(float64(n))
}

func (m *Metrics) retainedN(n int) {
	if m == nil {
		return
	}
	m.retained.Set(float64(n))
}
