// Package metrics exposes the process's Prometheus counters and
// histograms, grounded on the teacher's pkg/observability.Metrics
// (trimmed to the surface this module actually drives: HTTP requests,
// workflow executions, and tool calls).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects counters and histograms behind a private registry,
// served at GET /metrics in Prometheus text format.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	workflowRuns     *prometheus.CounterVec
	workflowDuration *prometheus.HistogramVec

	toolCalls *prometheus.CounterVec
}

// New registers a fresh set of collectors on a dedicated registry so that
// repeated calls (as in tests) never collide with the global default
// registry's collector names.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localflow_http_requests_total",
			Help: "Total HTTP requests handled, by route and status class.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "localflow_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		workflowRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localflow_workflow_runs_total",
			Help: "Total workflow executions, by outcome.",
		}, []string{"outcome"}),
		workflowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "localflow_workflow_duration_seconds",
			Help:    "Workflow execution latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localflow_tool_calls_total",
			Help: "Total tool invocations, by tool name and outcome.",
		}, []string{"tool", "outcome"}),
	}

	reg.MustRegister(m.httpRequests, m.httpDuration, m.workflowRuns, m.workflowDuration, m.toolCalls)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one completed request.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	statusClass := "2xx"
	switch {
	case status >= 500:
		statusClass = "5xx"
	case status >= 400:
		statusClass = "4xx"
	case status >= 300:
		statusClass = "3xx"
	}
	m.httpRequests.WithLabelValues(route, method, statusClass).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// ObserveWorkflow records one completed workflow execution.
func (m *Metrics) ObserveWorkflow(success bool, d time.Duration) {
	outcome := outcomeOf(success)
	m.workflowRuns.WithLabelValues(outcome).Inc()
	m.workflowDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveTool records one completed tool call.
func (m *Metrics) ObserveTool(name string, success bool) {
	m.toolCalls.WithLabelValues(name, outcomeOf(success)).Inc()
}

func outcomeOf(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
