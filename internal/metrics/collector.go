// Package metrics collects and exports Prometheus metrics for the
// analytics and archival subsystems.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service's Prometheus instruments
type Collector struct {
	registry *prometheus.Registry

	// Request metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Wait-time estimator metrics
	estimatesTotal       *prometheus.CounterVec
	unstableQueuesTotal  prometheus.Counter
	estimatedWaitMinutes prometheus.Histogram

	// ABC classification metrics
	abcRunsTotal           prometheus.Counter
	abcItemsClassified     prometheus.Counter
	abcClassificationMoves prometheus.Counter

	// Compliance monitoring metrics
	violationsTotal      *prometheus.CounterVec
	dashboardBuildsTotal prometheus.Counter
	outOfControlMetrics  prometheus.Gauge

	// Archival metrics
	archivalRunsTotal   *prometheus.CounterVec
	archivalRowsMoved   prometheus.Counter
	archivalRunDuration prometheus.Histogram
}

// NewCollector creates a collector with its own registry so tests can
// run isolated instances
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_analytics_http_requests_total",
			Help: "Total HTTP requests by method, path and status",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clinic_analytics_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		estimatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_analytics_wait_estimates_total",
			Help: "Wait-time estimates computed, by confidence",
		}, []string{"confidence"}),
		unstableQueuesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinic_analytics_unstable_queues_total",
			Help: "Estimates produced for unstable queues",
		}),
		estimatedWaitMinutes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clinic_analytics_estimated_wait_minutes",
			Help:    "Distribution of estimated wait minutes",
			Buckets: []float64{5, 10, 15, 30, 45, 60, 90, 120, 180},
		}),

		abcRunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinic_analytics_abc_runs_total",
			Help: "ABC classification runs",
		}),
		abcItemsClassified: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinic_analytics_abc_items_classified_total",
			Help: "Inventory items classified across all runs",
		}),
		abcClassificationMoves: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinic_analytics_abc_classification_moves_total",
			Help: "Items whose classification changed from the prior run",
		}),

		violationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_analytics_compliance_violations_total",
			Help: "Compliance violations detected, by severity",
		}, []string{"severity"}),
		dashboardBuildsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinic_analytics_compliance_dashboard_builds_total",
			Help: "Compliance dashboard builds",
		}),
		outOfControlMetrics: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clinic_analytics_out_of_control_metrics",
			Help: "Metrics currently flagged out of control",
		}),

		archivalRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_analytics_archival_runs_total",
			Help: "Archival executions, by terminal status",
		}, []string{"status"}),
		archivalRowsMoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinic_analytics_archival_rows_moved_total",
			Help: "Rows moved to archive tables",
		}),
		archivalRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clinic_analytics_archival_run_duration_seconds",
			Help:    "Archival run duration in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		}),
	}
}

// Handler returns the /metrics HTTP handler for this collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware records request counts and latency
func (c *Collector) HTTPMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		c.requestsTotal.WithLabelValues(
			ctx.Request.Method, path, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.requestDuration.WithLabelValues(
			ctx.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordEstimate records one computed wait-time estimate
func (c *Collector) RecordEstimate(confidence string, unstable bool, waitMinutes int) {
	c.estimatesTotal.WithLabelValues(confidence).Inc()
	if unstable {
		c.unstableQueuesTotal.Inc()
	}
	c.estimatedWaitMinutes.Observe(float64(waitMinutes))
}

// RecordABCRun records one classification run
func (c *Collector) RecordABCRun(items, moved int) {
	c.abcRunsTotal.Inc()
	c.abcItemsClassified.Add(float64(items))
	c.abcClassificationMoves.Add(float64(moved))
}

// RecordDashboard records one dashboard build and its violation tally
func (c *Collector) RecordDashboard(violationsBySeverity map[string]int, outOfControl int) {
	c.dashboardBuildsTotal.Inc()
	for severity, count := range violationsBySeverity {
		c.violationsTotal.WithLabelValues(severity).Add(float64(count))
	}
	c.outOfControlMetrics.Set(float64(outOfControl))
}

// RecordArchivalRun records a terminal archival execution
func (c *Collector) RecordArchivalRun(status string, rowsMoved int64, duration time.Duration) {
	c.archivalRunsTotal.WithLabelValues(status).Inc()
	c.archivalRowsMoved.Add(float64(rowsMoved))
	c.archivalRunDuration.Observe(duration.Seconds())
}
