package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exports. Each instance owns its
// registry so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	PipelineRuns        *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	PersistenceWarnings prometheus.Counter
	ArchiveFailures     prometheus.Counter

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RequestsInProgress  prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "speech_coach_pipeline_runs_total",
			Help: "Pipeline runs by terminal outcome",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "speech_coach_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage", "status"}),
		PersistenceWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speech_coach_persistence_warnings_total",
			Help: "Unreadable persisted files that were treated as empty",
		}),
		ArchiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speech_coach_archive_failures_total",
			Help: "Recordings that could not be archived to object storage",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "speech_coach_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "speech_coach_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		RequestsInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "speech_coach_http_requests_in_progress",
			Help: "HTTP requests currently being served",
		}),
	}
	reg.MustRegister(
		m.PipelineRuns,
		m.StageDuration,
		m.PersistenceWarnings,
		m.ArchiveFailures,
		m.HTTPRequests,
		m.HTTPRequestDuration,
		m.RequestsInProgress,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
