package runtime

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks message flow counters. All methods are nil-safe so
// callers never have to branch on whether metrics are enabled.
type Metrics struct {
	published       *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
	received        *prometheus.CounterVec
	handlerFailures *prometheus.CounterVec

	registerer prometheus.Registerer
}

func newCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartmessage",
			Subsystem: "transport",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewMetrics creates the message flow collectors. Passing nil uses the
// default Prometheus registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Metrics{
		published:       newCounterVec("messages_published_total", "Messages successfully handed to the broker client.", []string{"class"}),
		publishFailures: newCounterVec("publish_failures_total", "Publish calls that failed before or at the broker client.", []string{"class", "reason"}),
		received:        newCounterVec("messages_received_total", "Messages delivered to the dispatcher.", []string{"class"}),
		handlerFailures: newCounterVec("handler_failures_total", "Handler invocations that returned an error or panicked.", []string{"class"}),
		registerer:      registerer,
	}
}

// Register attaches the collectors to the registerer. Already-registered
// collectors are tolerated so multiple services can share a registry.
func (m *Metrics) Register() error {
	if m == nil {
		return nil
	}
	collectors := []prometheus.Collector{
		m.published,
		m.publishFailures,
		m.received,
		m.handlerFailures,
	}
	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

func (m *Metrics) MessagePublished(class string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(class).Inc()
}

func (m *Metrics) PublishFailure(class, reason string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(class, reason).Inc()
}

func (m *Metrics) MessageReceived(class string) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(class).Inc()
}

func (m *Metrics) HandlerFailure(class string) {
	if m == nil {
		return
	}
	m.handlerFailures.WithLabelValues(class).Inc()
}
