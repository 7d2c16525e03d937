package monitoring

import (
	"net/http"
	"time"

	"github.com/GriffinCanCode/arch3d/internal/process"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Channel metrics
	ChannelStarts   *prometheus.CounterVec
	ChannelOutcomes *prometheus.CounterVec
	ChannelDuration *prometheus.HistogramVec
	ProgressGauge   *prometheus.GaugeVec
	PayloadSize     *prometheus.HistogramVec
	ChannelsActive  prometheus.Gauge

	// Pipeline metrics
	StageRuns     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	Exports       *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

var _ process.Observer = (*Metrics)(nil)

// NewMetrics registers all collectors on reg. A nil reg gets a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ChannelStarts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arch3d_channel_starts_total",
				Help: "Total number of channel exchanges started",
			},
			[]string{"endpoint"},
		),
		ChannelOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arch3d_channel_outcomes_total",
				Help: "Terminal outcomes of channel exchanges",
			},
			[]string{"endpoint", "outcome"},
		),
		ChannelDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arch3d_channel_duration_seconds",
				Help:    "Time from start to terminal outcome",
				Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"endpoint"},
		),
		ProgressGauge: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arch3d_channel_progress",
				Help: "Last reported progress per endpoint (0-100)",
			},
			[]string{"endpoint"},
		),
		PayloadSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arch3d_channel_payload_bytes",
				Help:    "Size of terminal payloads",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
			[]string{"endpoint"},
		),
		ChannelsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "arch3d_channels_active",
				Help: "Exchanges started and not yet finished",
			},
		),

		StageRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arch3d_stage_runs_total",
				Help: "Pipeline stage runs by status",
			},
			[]string{"stage", "status"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arch3d_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),
		Exports: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arch3d_exports_total",
				Help: "Mesh exports to external tools",
			},
			[]string{"target", "status"},
		),

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arch3d_http_requests_total",
				Help: "Total number of status server requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arch3d_http_request_duration_seconds",
				Help:    "Status server request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ChannelStarted implements process.Observer.
func (m *Metrics) ChannelStarted(endpoint string) {
	m.ChannelStarts.WithLabelValues(endpoint).Inc()
	m.ProgressGauge.WithLabelValues(endpoint).Set(0)
	m.ChannelsActive.Inc()
}

// ChannelProgress implements process.Observer.
func (m *Metrics) ChannelProgress(endpoint string, progress int) {
	m.ProgressGauge.WithLabelValues(endpoint).Set(float64(progress))
}

// ChannelFinished implements process.Observer.
func (m *Metrics) ChannelFinished(endpoint string, outcome process.Outcome, elapsed time.Duration, size int) {
	m.ChannelOutcomes.WithLabelValues(endpoint, string(outcome)).Inc()
	m.ChannelDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	if outcome == process.OutcomePayload {
		m.PayloadSize.WithLabelValues(endpoint).Observe(float64(size))
	}
	m.ChannelsActive.Dec()
}

// RecordStage records one pipeline stage run.
func (m *Metrics) RecordStage(stage, status string, duration time.Duration) {
	m.StageRuns.WithLabelValues(stage, status).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordExport records one export attempt.
func (m *Metrics) RecordExport(target, status string) {
	m.Exports.WithLabelValues(target, status).Inc()
}

// RecordHTTPRequest records a status server request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
