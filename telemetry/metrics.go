package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "routedb"

// Metrics collects router and server metrics on a private registry.
// A nil *Metrics records nothing.
type Metrics struct {
	statements        *prometheus.CounterVec
	statementDuration *prometheus.HistogramVec
	errors            *prometheus.CounterVec
	batches           *prometheus.CounterVec
	connections       prometheus.Gauge

	registry *prometheus.Registry
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		statements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "statements_total",
				Help:      "Statements executed, by engine and statement kind",
			},
			[]string{"engine", "kind"},
		),
		statementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "statement_duration_seconds",
				Help:      "Engine execution time per statement",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"engine"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Failed batches, by error kind",
			},
			[]string{"kind"},
		),
		batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Query calls, by outcome",
			},
			[]string{"outcome"},
		),
		connections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_connections",
				Help:      "Open protocol connections",
			},
		),
	}

	registry.MustRegister(
		m.statements,
		m.statementDuration,
		m.errors,
		m.batches,
		m.connections,
	)
	return m
}

// RecordStatement records one successfully executed statement.
func (m *Metrics) RecordStatement(engine, kind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.statements.WithLabelValues(engine, kind).Inc()
	m.statementDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

// RecordBatch records the outcome of one Query call. An empty errorKind
// means success.
func (m *Metrics) RecordBatch(errorKind string) {
	if m == nil {
		return
	}
	if errorKind == "" {
		m.batches.WithLabelValues("ok").Inc()
		return
	}
	m.batches.WithLabelValues("error").Inc()
	m.errors.WithLabelValues(errorKind).Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
