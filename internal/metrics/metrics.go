// Package metrics registers the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// In-flight HTTP requests
	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// URLCacheLookups counts URL cache reads by result: hit, miss, error.
	URLCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "url_cache_lookups_total",
			Help: "URL resolution cache lookups by result",
		},
		[]string{"result"},
	)

	// GeoLookups counts geolocation lookups by result: hit, miss, error, not_found.
	GeoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geo_lookups_total",
			Help: "Geo lookups by result",
		},
		[]string{"result"},
	)

	// ClickEventsDropped counts click events lost before reaching the queue.
	ClickEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_events_dropped_total",
			Help: "Click events dropped on the publish side",
		},
		[]string{"reason"},
	)

	// ClickMessagesProcessed counts consumed click messages by outcome: acked, rejected, deferred.
	ClickMessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_messages_processed_total",
			Help: "Click messages handled by the ingestion consumer",
		},
		[]string{"outcome"},
	)
)

// Middleware returns a gin middleware that records basic Prometheus metrics.
// Labels are kept low-cardinality by using the matched route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := prometheus.Labels{
			"method": c.Request.Method,
			"route":  route,
			"status": strconv.Itoa(c.Writer.Status()),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
