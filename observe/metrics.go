package observe

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/comalice/hsmx"
)

const namespace = "hsmx"

// Metrics records dispatch counters and latency. Labels are the chart name,
// the runtime policy and, for events, the outcome.
type Metrics struct {
	events      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	errors      *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

var _ hsmx.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Dispatched events by outcome.",
			},
			[]string{"chart", "policy", "outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Transitions that changed the active configuration, by source machine.",
			},
			[]string{"chart", "policy", "machine"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_errors_total",
				Help:      "Dispatches aborted by a failing callback.",
			},
			[]string{"chart", "policy"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatch_duration_seconds",
				Help:      "Time spent dispatching a single event.",
				Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 12),
			},
			[]string{"chart", "policy"},
		),
	}
	for _, c := range []prometheus.Collector{m.events, m.transitions, m.errors, m.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Observe(n hsmx.Notification) {
	outcome := n.Result.Outcome.String()
	if n.Err != nil {
		outcome = "error"
		m.errors.WithLabelValues(n.Chart, n.Policy).Inc()
	}
	m.events.WithLabelValues(n.Chart, n.Policy, outcome).Inc()
	if n.Err == nil && n.Result.Transitioned() {
		m.transitions.WithLabelValues(n.Chart, n.Policy, n.Result.Machine).Inc()
	}
	m.latency.WithLabelValues(n.Chart, n.Policy).Observe(n.Elapsed.Seconds())
}
