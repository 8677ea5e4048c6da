// Package rfsmetrics provides optional Prometheus instrumentation for
// the server dispatcher. Every method is nil-receiver safe: a Server
// built with a nil *Metrics pays no instrumentation cost and never
// panics.
package rfsmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics wraps the counters, gauge, and histogram exported under the
// rfsd namespace.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeConns     prometheus.Gauge
}

// New creates and registers rfsd's metrics against registry. Passing a
// nil registry is not supported; pass a nil *Metrics to the server
// instead to disable instrumentation entirely.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfsd",
			Subsystem: "requests",
			Name:      "total",
			Help:      "Total number of handled requests by opcode and outcome.",
		}, []string{"opcode", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rfsd",
			Subsystem: "requests",
			Name:      "duration_seconds",
			Help:      "Handler duration by opcode.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"opcode"}),
		activeConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rfsd",
			Subsystem: "connections",
			Name:      "active",
			Help:      "Number of currently connected client workers.",
		}),
	}
	registry.MustRegister(m.requestsTotal, m.requestDuration, m.activeConns)
	return m
}

// ObserveRequest records one handled request: opcode, whether it
// succeeded, and how long the handler took.
func (m *Metrics) ObserveRequest(opcode string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.requestsTotal.WithLabelValues(opcode, outcome).Inc()
	m.requestDuration.WithLabelValues(opcode).Observe(d.Seconds())
}

// ConnectionOpened increments the active-connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.activeConns.Inc()
}

// ConnectionClosed decrements the active-connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.activeConns.Dec()
}
