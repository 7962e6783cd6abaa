package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the API
type Metrics struct {
	registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec

	AuthAttempts  *prometheus.CounterVec
	PolicyDenials *prometheus.CounterVec

	AuditQueueDepth prometheus.Gauge
	AuditDropped    prometheus.Counter

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a fresh registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "envsync",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envsync",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code",
		}, []string{"route", "method", "status"}),

		AuthAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envsync",
			Name:      "auth_attempts_total",
			Help:      "Credential validation attempts by credential type and outcome",
		}, []string{"credential", "outcome"}),

		PolicyDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envsync",
			Name:      "policy_denials_total",
			Help:      "Authorization denials by requirement",
		}, []string{"requirement"}),

		AuditQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "envsync",
			Name:      "audit_queue_depth",
			Help:      "Entries waiting in the audit write queue",
		}),

		AuditDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "envsync",
			Name:      "audit_dropped_total",
			Help:      "Audit entries dropped because the queue was full",
		}),

		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envsync",
			Name:      "cache_hits_total",
			Help:      "Cache hits by key prefix",
		}, []string{"prefix"}),

		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envsync",
			Name:      "cache_misses_total",
			Help:      "Cache misses by key prefix",
		}, []string{"prefix"}),
	}
}

// Handler returns the /metrics endpoint handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// InstrumentHandler wraps an HTTP handler with duration and count metrics.
// The route label is static to keep cardinality bounded.
func (m *Metrics) InstrumentHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		m.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(recorder.status)).Inc()
	})
}
