package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	decisionTotal   *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docverity",
			Subsystem: "worker",
			Name:      "verification_process_total",
			Help:      "Total processed verifications by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docverity",
			Subsystem: "worker",
			Name:      "verification_process_duration_seconds",
			Help:      "Verification processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docverity",
			Subsystem: "worker",
			Name:      "verification_process_in_flight",
			Help:      "Number of in-flight verification tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docverity",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between verification submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	decisionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docverity",
			Subsystem: "worker",
			Name:      "decisions_total",
			Help:      "Identification outcomes by winning doc type and validity.",
		},
		[]string{"service", "doc_type", "valid"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, decisionTotal)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
		decisionTotal:   decisionTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartVerification() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishVerification(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordDecision(service, docType string, valid bool) {
	v := "false"
	if valid {
		v = "true"
	}
	m.decisionTotal.WithLabelValues(service, docType, v).Inc()
}
