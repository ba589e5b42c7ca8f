package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names.
const (
	NameHTTPDuration    = "nodejs_http_requests_duration_seconds"
	NameHTTPMaxDuration = "nodejs_http_requests_duration_seconds_max"
	NameRequestsSize    = "atp_itf_lite_script_engine_requests_size_bytes"
	NameResponsesSize   = "atp_itf_lite_script_engine_responses_size_bytes"
	NameContextSize     = "atp_itf_lite_script_engine_context_size_total"
	NameSkippedCookies  = "atp_itf_lite_script_engine_skipped_cookies_total"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestDuration    *prometheus.HistogramVec
	RequestMaxDuration *prometheus.GaugeVec

	// Engine metrics
	RequestsSize  *prometheus.CounterVec
	ResponsesSize *prometheus.CounterVec
	ContextSize   *prometheus.CounterVec

	// Cookies dropped because their Set-Cookie string had no name
	SkippedCookies *prometheus.CounterVec

	registry *prometheus.Registry
	max      *maxTracker
}

// NewMetrics creates a new metrics collector on its own registry, with the Go
// runtime and process collectors attached.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewMetricsWith(reg)
}

// NewMetricsWith registers the collectors on reg.
func NewMetricsWith(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		max:      newMaxTracker(),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    NameHTTPDuration,
				Help:    "HTTP requests duration per endpoint/project",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "statusCode", "projectId"},
		),
		RequestMaxDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: NameHTTPMaxDuration,
				Help: "HTTP requests max duration per endpoint/project",
			},
			[]string{"method", "path", "projectId"},
		),

		RequestsSize: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: NameRequestsSize,
				Help: "ITF-Lite requests sizes per endpoint/project",
			},
			[]string{"projectId"},
		),
		ResponsesSize: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: NameResponsesSize,
				Help: "ITF-Lite responses sizes per endpoint/project",
			},
			[]string{"projectId"},
		),
		ContextSize: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: NameContextSize,
				Help: "Context sizes per project",
			},
			[]string{"projectId"},
		),
		SkippedCookies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: NameSkippedCookies,
				Help: "Cookies skipped as unparsable per project",
			},
			[]string{"projectId"},
		),
	}
}

// Registry returns the registry the metrics are exposed from.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request and raises the max-duration
// gauge when this request is the slowest seen for its labels.
func (m *Metrics) RecordHTTPRequest(method, path, status, projectID string, duration time.Duration) {
	projectID = ProjectLabel(projectID)
	seconds := duration.Seconds()
	m.RequestDuration.WithLabelValues(method, path, status, projectID).Observe(seconds)

	if peak, raised := m.max.observe(method+"\x00"+path+"\x00"+projectID, seconds); raised {
		m.RequestMaxDuration.WithLabelValues(method, path, projectID).Set(peak)
	}
}

// RecordRequestSize adds the serialized request size for a project.
func (m *Metrics) RecordRequestSize(projectID string, bytes int) {
	m.RequestsSize.WithLabelValues(ProjectLabel(projectID)).Add(float64(bytes))
}

// RecordResponseSize adds the serialized response size for a project.
func (m *Metrics) RecordResponseSize(projectID string, bytes int) {
	m.ResponsesSize.WithLabelValues(ProjectLabel(projectID)).Add(float64(bytes))
}

// RecordContextSize adds the number of variables loaded for a project.
func (m *Metrics) RecordContextSize(projectID string, count int) {
	m.ContextSize.WithLabelValues(ProjectLabel(projectID)).Add(float64(count))
}

// RecordSkippedCookies counts cookies left out of an execution.
func (m *Metrics) RecordSkippedCookies(projectID string, count int) {
	m.SkippedCookies.WithLabelValues(ProjectLabel(projectID)).Add(float64(count))
}
