package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vnastore"

// Metrics records profile store operations on a private registry so that a short-lived CLI
// process can dump them to a node-exporter textfile on exit.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the store collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Profile store operations by outcome.",
			},
			[]string{"op", "success"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Profile store operation duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"op"},
		),
	}
	m.registry.MustRegister(m.operations, m.duration)
	return m
}

// Registry exposes the registry for scraping or inspection.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Observe implements the store's metrics recorder interface.
func (m *Metrics) Observe(_ context.Context, op string, success bool, d time.Duration) {
	if op == "" {
		return
	}
	m.operations.WithLabelValues(op, strconv.FormatBool(success)).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

// WriteTextfile writes the current metrics in text exposition format to path, replacing the
// file atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
