// Package observability exposes Prometheus metrics for the run lifecycle.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects run lifecycle metrics. A nil *Metrics is valid and records nothing.
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	metrics.PollQuery("in_progress")
//	defer metrics.ObserveTool("getCatImage", time.Now(), err)
type Metrics struct {
	registry *prometheus.Registry

	// PollQueries counts run status queries.
	// Labels: status (queued|in_progress|requires_action|completed|failed|...|error)
	PollQueries *prometheus.CounterVec

	// RunOutcomes counts settled turns.
	// Labels: outcome (completed|failed|transport_error|tool_error|cancelled)
	RunOutcomes *prometheus.CounterVec

	// ToolExecutions counts tool invocations.
	// Labels: tool_name, status (success|error|blocked|unknown)
	ToolExecutions *prometheus.CounterVec

	// ToolDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolDuration *prometheus.HistogramVec

	// TurnDuration measures the time from send to settled in seconds.
	TurnDuration prometheus.Histogram

	// HTTPRequests counts gateway requests.
	// Labels: method, path, status_code
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates all metrics on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PollQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catai_run_poll_queries_total",
				Help: "Total number of run status queries by observed status",
			},
			[]string{"status"},
		),

		RunOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catai_turn_outcomes_total",
				Help: "Total number of settled user turns by outcome",
			},
			[]string{"outcome"},
		),

		ToolExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catai_tool_executions_total",
				Help: "Total number of tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catai_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool_name"},
		),

		TurnDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catai_turn_duration_seconds",
				Help:    "Duration from send to settled state in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catai_http_requests_total",
				Help: "Total number of gateway HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
	}
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PollQuery records one status query.
func (m *Metrics) PollQuery(status string) {
	if m == nil {
		return
	}
	m.PollQueries.WithLabelValues(status).Inc()
}

// TurnSettled records a turn outcome and its duration.
func (m *Metrics) TurnSettled(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.RunOutcomes.WithLabelValues(outcome).Inc()
	m.TurnDuration.Observe(time.Since(started).Seconds())
}

// ToolExecuted records one tool execution.
func (m *Metrics) ToolExecuted(toolName, status string, started time.Time) {
	if m == nil {
		return
	}
	m.ToolExecutions.WithLabelValues(toolName, status).Inc()
	m.ToolDuration.WithLabelValues(toolName).Observe(time.Since(started).Seconds())
}

// HTTPRequest records one gateway request.
func (m *Metrics) HTTPRequest(method, path, statusCode string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, statusCode).Inc()
}
