// Package metrics exposes relay counters in Prometheus format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tootrelay/tootrelay/internal/bus"
)

const namespace = "tootrelay"

// Metrics implements relay.Metrics on a Prometheus registry.
type Metrics struct {
	registry    *prometheus.Registry
	messages    *prometheus.CounterVec
	posts       prometheus.Counter
	chainLength prometheus.Histogram
	transportUp *prometheus.GaugeVec
}

// New creates the relay collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound channel posts by content kind and outcome.",
		}, []string{"kind", "result"}),
		posts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_total",
			Help:      "Statuses created on the destination.",
		}),
		chainLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_length",
			Help:      "Statuses per fully delivered chain.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		}),
		transportUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transport_up",
			Help:      "1 when the last identity probe of the transport succeeded.",
		}, []string{"transport"}),
	}
	m.registry.MustRegister(
		m.messages,
		m.posts,
		m.chainLength,
		m.transportUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) MessageHandled(kind bus.Kind, result string) {
	m.messages.WithLabelValues(string(kind), result).Inc()
}

func (m *Metrics) PostCreated() { m.posts.Inc() }

func (m *Metrics) ChainDelivered(chunks int) { m.chainLength.Observe(float64(chunks)) }

func (m *Metrics) TransportUp(transport string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.transportUp.WithLabelValues(transport).Set(v)
}
