package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "statusrole"

// Outcome labels for role actions.
const (
	OutcomeApplied    = "applied"
	OutcomeFailed     = "failed"
	OutcomeSuppressed = "suppressed"
	OutcomeSkipped    = "skipped"
)

// Metrics holds the engine and pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	actions      *prometheus.CounterVec
	events       *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	logSendFails prometheus.Counter
	cacheEntries prometheus.Gauge
}

// New registers the collectors with registry. A nil registry uses the default registerer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_actions_total",
			Help:      "Role grant and revoke actions by handler, kind and outcome",
		}, []string{"handler", "kind", "outcome"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events processed by kind",
		}, []string{"kind"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped before processing by reason",
		}, []string{"reason"}),
		logSendFails: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_send_failures_total",
			Help:      "Public log lines that could not be delivered",
		}),
		cacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "status_cache_entries",
			Help:      "Members with a cached primary status text",
		}),
	}
}

func (m *Metrics) ObserveAction(handler, kind, outcome string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(handler, kind, outcome).Inc()
}

func (m *Metrics) ObserveEvent(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveDropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveLogSendFailure() {
	if m == nil {
		return
	}
	m.logSendFails.Inc()
}

func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}

// ActionCounter exposes the counter behind one action label set.
func (m *Metrics) ActionCounter(handler, kind, outcome string) prometheus.Counter {
	return m.actions.WithLabelValues(handler, kind, outcome)
}

func (m *Metrics) LogSendFailures() prometheus.Counter {
	return m.logSendFails
}
