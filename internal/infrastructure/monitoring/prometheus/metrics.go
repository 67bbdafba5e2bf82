// Package prometheus exposes the engine's operational counters. The
// Collector satisfies the instrumentation ports of the scan coordinator and
// the cached embedding provider so those packages never import this one.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "granite"

// Collector aggregates all engine metrics behind a single registry.
type Collector struct {
	registry *prometheus.Registry

	scansStarted   prometheus.Counter
	scansCompleted prometheus.Counter
	scansFailed    prometheus.Counter
	scanDuration   prometheus.Histogram

	presaveChecks *prometheus.CounterVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector builds a Collector with its own registry, keeping the default
// global registry clean for tests that build several collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		scansStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "similarity_scans_started_total",
			Help:      "Number of on-demand similarity scans started.",
		}),
		scansCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "similarity_scans_completed_total",
			Help:      "Number of similarity scans that reached COMPLETED.",
		}),
		scansFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "similarity_scans_failed_total",
			Help:      "Number of similarity scans that reached FAILED, superseded scans included.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "similarity_scan_duration_seconds",
			Help:      "Wall-clock duration of completed similarity scans.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		presaveChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presave_checks_total",
			Help:      "Pre-save duplicate checks, partitioned by whether any match cleared the threshold.",
		}, []string{"matched"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_hits_total",
			Help:      "Embedding vectors served from the cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_misses_total",
			Help:      "Embedding requests that fell through to the provider.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, partitioned by method, route and status class.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, partitioned by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.scansStarted, c.scansCompleted, c.scansFailed, c.scanDuration,
		c.presaveChecks, c.cacheHits, c.cacheMisses,
		c.httpRequests, c.httpDuration,
	)
	return c
}

// ScanStarted implements the scan coordinator's metrics port.
func (c *Collector) ScanStarted() { c.scansStarted.Inc() }

// ScanCompleted records a successful scan and its duration.
func (c *Collector) ScanCompleted(d time.Duration) {
	c.scansCompleted.Inc()
	c.scanDuration.Observe(d.Seconds())
}

// ScanFailed records a failed or superseded scan.
func (c *Collector) ScanFailed() { c.scansFailed.Inc() }

// PresaveCheck records a pre-save duplicate check.
func (c *Collector) PresaveCheck(matched bool) {
	label := "false"
	if matched {
		label = "true"
	}
	c.presaveChecks.WithLabelValues(label).Inc()
}

// CacheHit implements the embedding cache stats port.
func (c *Collector) CacheHit() { c.cacheHits.Inc() }

// CacheMiss implements the embedding cache stats port.
func (c *Collector) CacheMiss() { c.cacheMisses.Inc() }

// ObserveHTTP records one served HTTP request.
func (c *Collector) ObserveHTTP(method, route, status string, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, status).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler returns the scrape endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test assertions.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }
