// Package metrics holds the Prometheus collectors of the API and the workers.
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

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "solodesk",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "solodesk",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	TemplateSaves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "solodesk",
		Name:      "template_saves_total",
		Help:      "Email template saves by type and outcome.",
	}, []string{"type", "outcome"})

	Jobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "solodesk",
		Name:      "jobs_total",
		Help:      "Background jobs processed by task type and outcome.",
	}, []string{"task", "outcome"})

	// Registry holds every collector above plus the Go runtime collectors.
	Registry = prometheus.NewRegistry()
)

func init() {
	Registry.MustRegister(
		HTTPRequests,
		HTTPDuration,
		TemplateSaves,
		Jobs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Outcome is the label value for err.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Middleware records the count and latency of every request. Unmatched
// routes share one label so random paths do not grow the series.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		HTTPRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
