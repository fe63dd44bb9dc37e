package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ClientMetrics struct {
	registry *prometheus.Registry
	service  string

	uploadTotal     *prometheus.CounterVec
	uploadDuration  *prometheus.HistogramVec
	askTotal        *prometheus.CounterVec
	askDuration     *prometheus.HistogramVec
	backendTotal    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	backendInFlight prometheus.Gauge
	previewTotal    *prometheus.CounterVec
}

func NewClientMetrics(service string) *ClientMetrics {
	registry := prometheus.NewRegistry()

	uploadTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "client",
			Name:      "uploads_total",
			Help:      "Total upload submissions by outcome.",
		},
		[]string{"service", "outcome"},
	)
	uploadDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "client",
			Name:      "upload_duration_seconds",
			Help:      "Upload submission duration in seconds by outcome.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "outcome"},
	)
	askTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "client",
			Name:      "questions_total",
			Help:      "Total chat questions by outcome.",
		},
		[]string{"service", "outcome"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "client",
			Name:      "question_duration_seconds",
			Help:      "Chat question duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)
	backendTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total backend requests by operation and status.",
		},
		[]string{"service", "operation", "status"},
	)
	backendDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Backend request duration in seconds by operation.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)
	backendInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docqa",
			Subsystem: "backend",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight backend requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	previewTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "client",
			Name:      "preview_renders_total",
			Help:      "Total preview renders by source and outcome.",
		},
		[]string{"service", "source", "outcome"},
	)

	registry.MustRegister(
		uploadTotal,
		uploadDuration,
		askTotal,
		askDuration,
		backendTotal,
		backendDuration,
		backendInFlight,
		previewTotal,
	)

	return &ClientMetrics{
		registry:        registry,
		service:         service,
		uploadTotal:     uploadTotal,
		uploadDuration:  uploadDuration,
		askTotal:        askTotal,
		askDuration:     askDuration,
		backendTotal:    backendTotal,
		backendDuration: backendDuration,
		backendInFlight: backendInFlight,
		previewTotal:    previewTotal,
	}
}

func (m *ClientMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentTransport tracks in-flight backend requests on next.
func (m *ClientMetrics) InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(m.backendInFlight, next)
}

func (m *ClientMetrics) ObserveUpload(outcome string, duration time.Duration) {
	m.uploadTotal.WithLabelValues(m.service, outcome).Inc()
	m.uploadDuration.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
}

func (m *ClientMetrics) ObserveAsk(outcome string, duration time.Duration) {
	m.askTotal.WithLabelValues(m.service, outcome).Inc()
	m.askDuration.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
}

// ObserveBackendRequest records a round trip. status 0 means no response arrived.
func (m *ClientMetrics) ObserveBackendRequest(operation string, status int, duration time.Duration) {
	label := "transport_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.backendTotal.WithLabelValues(m.service, operation, label).Inc()
	m.backendDuration.WithLabelValues(m.service, operation).Observe(duration.Seconds())
}

func (m *ClientMetrics) ObservePreview(source string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.previewTotal.WithLabelValues(m.service, source, outcome).Inc()
}
