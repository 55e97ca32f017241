package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveAction("presence", "grant", OutcomeApplied)
	m.ObserveAction("presence", "grant", OutcomeApplied)
	m.ObserveAction("presence", "revoke", OutcomeSuppressed)
	m.ObserveEvent("presence")
	m.ObserveDropped("queue_full")
	m.ObserveLogSendFailure()
	m.SetCacheEntries(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.actions.WithLabelValues("presence", "grant", OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("presence", "revoke", OutcomeSuppressed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("presence")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("queue_full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logSendFails))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cacheEntries))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveAction("scan", "grant", OutcomeApplied)
		m.ObserveEvent("scan")
		m.ObserveDropped("x")
		m.ObserveLogSendFailure()
		m.SetCacheEntries(1)
	})
}
