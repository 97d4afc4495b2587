// Package metrics exposes Prometheus instrumentation for the storefront client.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

// Collector records request, rate limiter and cache activity. A nil
// *Collector is valid and records nothing. It is safe for concurrent use.
type Collector struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	rateLimitRejected prometheus.Counter
	errorsTotal       *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	invalidations     *prometheus.CounterVec
}

// NewCollector registers the storefront metrics on registry.
func NewCollector(registry prometheus.Registerer) *Collector {
	factory := promauto.With(registry)
	return &Collector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of API requests that reached the network",
			},
			[]string{"method", "route", "status_code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of API requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		rateLimitRejected: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_rejected_total",
				Help:      "Requests rejected locally because the rate window was full",
			},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Failed API calls by error kind",
			},
			[]string{"method", "route", "kind"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Repository reads served from the response cache",
			},
			[]string{"operation"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Repository reads that went to the network",
			},
			[]string{"operation"},
		),
		invalidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_invalidations_total",
				Help:      "Cache entries removed after writes",
			},
			[]string{"operation"},
		),
	}
}

// RecordRequest records a request that produced an HTTP status.
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRateLimited records a locally rejected request.
func (c *Collector) RecordRateLimited() {
	if c == nil {
		return
	}
	c.rateLimitRejected.Inc()
}

// RecordError records a failed call by error kind.
func (c *Collector) RecordError(method, route, kind string) {
	if c == nil {
		return
	}
	c.errorsTotal.WithLabelValues(method, route, kind).Inc()
}

// RecordCacheHit records a read served from cache.
func (c *Collector) RecordCacheHit(operation string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(operation).Inc()
}

// RecordCacheMiss records a read that had to fetch.
func (c *Collector) RecordCacheMiss(operation string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(operation).Inc()
}

// RecordInvalidations records n cache entries dropped by a write operation.
func (c *Collector) RecordInvalidations(operation string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.invalidations.WithLabelValues(operation).Add(float64(n))
}
