// Package metrics exposes Prometheus HTTP metrics for the command API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP holds the request collectors and the registry they are registered on.
type HTTP struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	commands *prometheus.CounterVec
}

// NewHTTP creates collectors on a private registry, together with the Go runtime collectors.
func NewHTTP() *HTTP {
	m := &HTTP{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commands_dispatched_total",
				Help: "Commands accepted by the API, by type and outcome.",
			},
			[]string{"type", "outcome"},
		),
	}
	m.registry.MustRegister(
		m.requests,
		m.latency,
		m.commands,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware records one sample per request, labelled by route template.
func (m *HTTP) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requests.WithLabelValues(c.Request.Method, path, status).Inc()
		m.latency.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// CommandDispatched counts a dispatch attempt.
func (m *HTTP) CommandDispatched(commandType, outcome string) {
	m.commands.WithLabelValues(commandType, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *HTTP) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *HTTP) Registry() *prometheus.Registry { return m.registry }
