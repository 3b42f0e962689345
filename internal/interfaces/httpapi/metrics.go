package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"walletops/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "walletops"

// Metrics owns a private registry so tests and multiple servers never clash
// on the global one. It also serves as the history service observer.
type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	upstreamErrors   *prometheus.CounterVec
	normalized       *prometheus.CounterVec
	publishErrors    prometheus.Counter
	startTimeSeconds prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "history",
			Name:      "cache_lookups_total",
			Help:      "History page cache lookups by result.",
		}, []string{"result"}),
		upstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "history",
			Name:      "upstream_errors_total",
			Help:      "Failed provider calls by upstream status code (0 when no response).",
		}, []string{"status"}),
		normalized: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "history",
			Name:      "normalized_transactions_total",
			Help:      "Normalized transactions by operation type.",
		}, []string{"type"}),
		publishErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "history",
			Name:      "publish_errors_total",
			Help:      "Failed stream publishes of normalized pages.",
		}),
		startTimeSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "start_time_seconds",
			Help:      "Unix time the server started.",
		}),
	}
	m.startTimeSeconds.Set(float64(time.Now().Unix()))
	for _, typ := range domain.OperationTypes() {
		m.normalized.WithLabelValues(string(typ))
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveUpstreamError(statusCode int) {
	m.upstreamErrors.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (m *Metrics) ObserveNormalized(txs []domain.NormalizedTransaction) {
	for _, tx := range txs {
		m.normalized.WithLabelValues(string(tx.Type)).Inc()
	}
}

func (m *Metrics) ObservePublishError() {
	m.publishErrors.Inc()
}
