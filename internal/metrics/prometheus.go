package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics on a private registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	pledged           prometheus.Counter
	withdrawn         prometheus.Counter
	eventsPublished   *prometheus.CounterVec
}

func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: registry,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Ledger operations by name and result code",
			},
			[]string{"op", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Time spent inside a ledger transaction",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		pledged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pledged_lamports_total",
				Help:      "Lamports pledged to campaigns",
			},
		),
		withdrawn: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "withdrawn_lamports_total",
				Help:      "Lamports withdrawn by creators",
			},
		),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Outbox events relayed to the broker",
			},
			[]string{"kind", "result"},
		),
	}

	registry.MustRegister(
		m.operations,
		m.operationDuration,
		m.pledged,
		m.withdrawn,
		m.eventsPublished,
	)
	return m
}

func (m *PrometheusMetrics) ObserveOperation(op, result string, took time.Duration) {
	m.operations.WithLabelValues(op, result).Inc()
	m.operationDuration.WithLabelValues(op).Observe(took.Seconds())
}

func (m *PrometheusMetrics) AddPledged(lamports int64) {
	m.pledged.Add(float64(lamports))
}

func (m *PrometheusMetrics) AddWithdrawn(lamports int64) {
	m.withdrawn.Add(float64(lamports))
}

func (m *PrometheusMetrics) IncEventsPublished(kind, result string) {
	m.eventsPublished.WithLabelValues(kind, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

var _ Metrics = (*PrometheusMetrics)(nil)
