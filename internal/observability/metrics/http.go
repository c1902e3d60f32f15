package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	identifyTotal      *prometheus.CounterVec
	identifyConfidence *prometheus.HistogramVec
	identifyDuration   *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docverity",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docverity",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docverity",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	identifyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docverity",
			Subsystem: "identify",
			Name:      "decisions_total",
			Help:      "Total identification decisions by winning doc type and validity.",
		},
		[]string{"service", "doc_type", "valid"},
	)
	identifyConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docverity",
			Subsystem: "identify",
			Name:      "confidence",
			Help:      "Distribution of decision confidence.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service", "doc_type"},
	)
	identifyDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docverity",
			Subsystem: "identify",
			Name:      "duration_seconds",
			Help:      "End-to-end identification duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		identifyTotal,
		identifyConfidence,
		identifyDuration,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		identifyTotal:      identifyTotal,
		identifyConfidence: identifyConfidence,
		identifyDuration:   identifyDuration,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordDecision(service, docType string, valid bool, confidence float64, duration time.Duration) {
	m.identifyTotal.WithLabelValues(service, docType, strconv.FormatBool(valid)).Inc()
	m.identifyConfidence.WithLabelValues(service, docType).Observe(confidence)
	m.identifyDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/verifications/"):
		return "/v1/verifications/{verification_id}"
	default:
		return path
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
