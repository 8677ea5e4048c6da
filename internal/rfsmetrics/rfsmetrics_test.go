package rfsmetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNilMetricsDoesNotPanic(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("OPEN", true, time.Millisecond)
	m.ObserveRequest("OPEN", false, time.Millisecond)
	m.ConnectionOpened()
	m.ConnectionClosed()
}

func TestNewRegistersWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveRequest("READ", true, time.Microsecond)
	m.ConnectionOpened()
	m.ConnectionClosed()
}
