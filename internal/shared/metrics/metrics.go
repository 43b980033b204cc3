package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	HTTPResponseSize     *prometheus.HistogramVec

	// Generation metrics
	GenerationCallsTotal   *prometheus.CounterVec
	GenerationCallDuration *prometheus.HistogramVec
	ImagesGeneratedTotal   *prometheus.CounterVec
	CircuitState           *prometheus.GaugeVec

	// Store metrics
	HistoryEvictionsTotal prometheus.Counter
	StoreErrorsTotal      *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "thumbfast"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "HTTP response body size in bytes",
				// Image responses run from a few hundred KB to tens of MB.
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
			[]string{"path"},
		),

		GenerationCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "calls_total",
				Help:      "Total number of remote model calls",
			},
			[]string{"model", "status"},
		),
		GenerationCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "call_duration_seconds",
				Help:      "Remote model call duration in seconds",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"model"},
		),
		ImagesGeneratedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "images_total",
				Help:      "Total number of images returned to callers",
			},
			[]string{"model"},
		),
		CircuitState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "circuit_state",
				Help:      "Circuit breaker state per model (0=closed, 1=half-open, 2=open)",
			},
			[]string{"model"},
		),

		HistoryEvictionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "history",
				Name:      "evictions_total",
				Help:      "Total number of history entries evicted to respect the cap",
			},
		),
		StoreErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "errors_total",
				Help:      "Total number of swallowed store errors",
			},
			[]string{"store", "operation"},
		),
	}
}

// RecordHTTPRequest records an HTTP request. A negative size means no body
// was written and is not observed.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration, size int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCodeToString(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	if size >= 0 {
		m.HTTPResponseSize.WithLabelValues(path).Observe(float64(size))
	}
}

// RecordGenerationCall records one remote model call.
func (m *Metrics) RecordGenerationCall(model, status string, duration time.Duration) {
	m.GenerationCallsTotal.WithLabelValues(model, status).Inc()
	m.GenerationCallDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordImages adds n produced images for model.
func (m *Metrics) RecordImages(model string, n int) {
	if n > 0 {
		m.ImagesGeneratedTotal.WithLabelValues(model).Add(float64(n))
	}
}

// SetCircuitState publishes the breaker state for model.
func (m *Metrics) SetCircuitState(model string, state int) {
	m.CircuitState.WithLabelValues(model).Set(float64(state))
}

// RecordEvictions adds n evicted history entries.
func (m *Metrics) RecordEvictions(n int) {
	if n > 0 {
		m.HistoryEvictionsTotal.Add(float64(n))
	}
}

// RecordStoreError records a store failure that was swallowed.
func (m *Metrics) RecordStoreError(store, operation string) {
	m.StoreErrorsTotal.WithLabelValues(store, operation).Inc()
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
