package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PipelineMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	annotateTotal       *prometheus.CounterVec
	candidatesRetrieved *prometheus.HistogramVec
	candidatesLocated   *prometheus.CounterVec
	candidatesFailed    *prometheus.CounterVec
	annotateDuration    *prometheus.HistogramVec

	indexRebuildTotal    *prometheus.CounterVec
	indexRebuildDuration *prometheus.HistogramVec
	indexSize            *prometheus.GaugeVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intelliject",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intelliject",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "intelliject",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	annotateTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intelliject",
			Subsystem: "pipeline",
			Name:      "annotate_requests_total",
			Help:      "Total annotate runs by outcome.",
		},
		[]string{"service", "subject", "status"},
	)
	candidatesRetrieved := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intelliject",
			Subsystem: "pipeline",
			Name:      "candidates_retrieved",
			Help:      "Distribution of retrieved candidates per annotate run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "subject"},
	)
	candidatesLocated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intelliject",
			Subsystem: "pipeline",
			Name:      "candidates_located_total",
			Help:      "Total candidates annotated successfully.",
		},
		[]string{"service", "subject"},
	)
	candidatesFailed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intelliject",
			Subsystem: "pipeline",
			Name:      "candidates_failed_total",
			Help:      "Total candidates dropped after exhausting retries.",
		},
		[]string{"service", "subject"},
	)
	annotateDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intelliject",
			Subsystem: "pipeline",
			Name:      "annotate_duration_seconds",
			Help:      "End-to-end annotate run duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "subject"},
	)
	indexRebuildTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intelliject",
			Subsystem: "index",
			Name:      "rebuild_total",
			Help:      "Total index rebuilds by outcome.",
		},
		[]string{"service", "subject", "status"},
	)
	indexRebuildDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intelliject",
			Subsystem: "index",
			Name:      "rebuild_duration_seconds",
			Help:      "Index rebuild duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "subject"},
	)
	indexSize := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "intelliject",
			Subsystem: "index",
			Name:      "records",
			Help:      "Records in the live index per subject.",
		},
		[]string{"service", "subject"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		annotateTotal,
		candidatesRetrieved,
		candidatesLocated,
		candidatesFailed,
		annotateDuration,
		indexRebuildTotal,
		indexRebuildDuration,
		indexSize,
	)

	return &PipelineMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		annotateTotal:        annotateTotal,
		candidatesRetrieved:  candidatesRetrieved,
		candidatesLocated:    candidatesLocated,
		candidatesFailed:     candidatesFailed,
		annotateDuration:     annotateDuration,
		indexRebuildTotal:    indexRebuildTotal,
		indexRebuildDuration: indexRebuildDuration,
		indexSize:            indexSize,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) Middleware(service string, next http.Handler) http.Handler {
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

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/corpus/"):
		return "/v1/corpus/{subject}/reindex"
	default:
		return path
	}
}

func (m *PipelineMetrics) RecordAnnotateRun(service, subject, status string, retrieved, located, failed int, duration time.Duration) {
	m.annotateTotal.WithLabelValues(service, subject, status).Inc()
	m.candidatesRetrieved.WithLabelValues(service, subject).Observe(float64(retrieved))
	m.candidatesLocated.WithLabelValues(service, subject).Add(float64(located))
	m.candidatesFailed.WithLabelValues(service, subject).Add(float64(failed))
	m.annotateDuration.WithLabelValues(service, subject).Observe(duration.Seconds())
}

func (m *PipelineMetrics) RecordIndexRebuild(service, subject, status string, records int, duration time.Duration) {
	m.indexRebuildTotal.WithLabelValues(service, subject, status).Inc()
	m.indexRebuildDuration.WithLabelValues(service, subject).Observe(duration.Seconds())
	if status == "ok" {
		m.indexSize.WithLabelValues(service, subject).Set(float64(records))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
