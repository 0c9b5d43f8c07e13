package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the harvester's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Outbound fetch metrics
	FetchTotal    *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	RateLimited   *prometheus.CounterVec

	// Crawl metrics
	FoldersCrawled *prometheus.CounterVec
	ToolsParsed    prometheus.Counter
	FilesSkipped   *prometheus.CounterVec
	QueueDepth     prometheus.Gauge

	// Workflow metrics
	WorkflowRefs *prometheus.CounterVec

	// Status server metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates collectors registered on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetch_total",
				Help: "Total number of outbound HTTP fetches",
			},
			[]string{"host", "status"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_fetch_duration_seconds",
				Help:    "Outbound HTTP fetch duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"host"},
		),
		RateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_rate_limited_total",
				Help: "Total number of rate limit responses that started a host cooldown",
			},
			[]string{"host"},
		),

		FoldersCrawled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_folders_crawled_total",
				Help: "Total number of folder listings processed by outcome",
			},
			[]string{"outcome"},
		),
		ToolsParsed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_tools_parsed_total",
				Help: "Total number of tool definitions parsed",
			},
		),
		FilesSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_files_skipped_total",
				Help: "Total number of definition files skipped by reason",
			},
			[]string{"reason"},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_crawl_queue_depth",
				Help: "Number of folder tasks waiting or running",
			},
		),

		WorkflowRefs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_workflow_references_total",
				Help: "Total number of ToolShed workflow references by outcome",
			},
			[]string{"outcome"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_http_requests_total",
				Help: "Total number of status server requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_http_request_duration_seconds",
				Help:    "Status server request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordFetch records one outbound fetch
func (m *Metrics) RecordFetch(host string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(host, strconv.Itoa(status)).Inc()
	m.FetchDuration.WithLabelValues(host).Observe(duration.Seconds())
}

// RecordRateLimit records a host entering cooldown
func (m *Metrics) RecordRateLimit(host string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(host).Inc()
}

// RecordFolder records a processed folder listing ("ok", "error", "retry", "pruned")
func (m *Metrics) RecordFolder(outcome string) {
	if m == nil {
		return
	}
	m.FoldersCrawled.WithLabelValues(outcome).Inc()
}

// RecordTool records a parsed tool definition
func (m *Metrics) RecordTool() {
	if m == nil {
		return
	}
	m.ToolsParsed.Inc()
}

// RecordSkip records a skipped definition file
func (m *Metrics) RecordSkip(reason string) {
	if m == nil {
		return
	}
	m.FilesSkipped.WithLabelValues(reason).Inc()
}

// AddQueueDepth adjusts the crawl queue gauge
func (m *Metrics) AddQueueDepth(delta float64) {
	if m == nil {
		return
	}
	m.QueueDepth.Add(delta)
}

// RecordWorkflowRef records a workflow reference outcome ("resolved", "dropped", "skipped")
func (m *Metrics) RecordWorkflowRef(outcome string) {
	if m == nil {
		return
	}
	m.WorkflowRefs.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records a status server request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
