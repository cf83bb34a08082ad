package runtime

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, m.Register())

	m.MessagePublished("OrderConfirmation")
	m.MessagePublished("OrderConfirmation")
	m.MessageReceived("OrderConfirmation")
	m.HandlerFailure("OrderConfirmation")
	m.PublishFailure("OrderConfirmation", "encode")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.published.WithLabelValues("OrderConfirmation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.received.WithLabelValues("OrderConfirmation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlerFailures.WithLabelValues("OrderConfirmation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishFailures.WithLabelValues("OrderConfirmation", "encode")))
}

func TestMetrics_RegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Register())
	require.NoError(t, m.Register())
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		assert.NoError(t, m.Register())
		m.MessagePublished("x")
		m.MessageReceived("x")
		m.HandlerFailure("x")
		m.PublishFailure("x", "y")
	})
}
