package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers the portal's operational counters: cache behaviour,
// timer flushes, upstream API health, and call dispatch activity.
type Collector struct {
	registry         *prometheus.Registry
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	pageRehydrations prometheus.Counter
	flushAttempts    prometheus.Counter
	flushFailures    prometheus.Counter
	upstreamErrors   prometheus.Counter
	upstreamLatency  prometheus.Histogram
	callsStarted     prometheus.Counter
	callsCancelled   prometheus.Counter
	activeTimers     prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_cache_hits_total",
			Help: "Total value-cache reads served from a fresh entry",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_cache_misses_total",
			Help: "Total value-cache reads that fell through to a producer",
		}),
		pageRehydrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_page_rehydrations_total",
			Help: "Total pages served stale and refreshed in the background",
		}),
		flushAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_timer_flush_attempts_total",
			Help: "Total timesheet upsert flushes attempted",
		}),
		flushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_timer_flush_failures_total",
			Help: "Total timesheet upsert flushes that exhausted retries",
		}),
		upstreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_upstream_errors_total",
			Help: "Total failed calls to the upstream HR API",
		}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_upstream_latency_seconds",
			Help:    "Upstream HR API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		callsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_calls_started_total",
			Help: "Total video calls dispatched",
		}),
		callsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_calls_cancelled_total",
			Help: "Total video calls cancelled by the admin",
		}),
		activeTimers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_active_timers",
			Help: "Current number of users with a running task timer",
		}),
	}

	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.pageRehydrations,
		c.flushAttempts,
		c.flushFailures,
		c.upstreamErrors,
		c.upstreamLatency,
		c.callsStarted,
		c.callsCancelled,
		c.activeTimers,
	)

	return c
}

func (c *Collector) RecordCacheHit() {
	if c != nil {
		c.cacheHits.Inc()
	}
}

func (c *Collector) RecordCacheMiss() {
	if c != nil {
		c.cacheMisses.Inc()
	}
}

func (c *Collector) RecordPageRehydration() {
	if c != nil {
		c.pageRehydrations.Inc()
	}
}

func (c *Collector) RecordFlushAttempt() {
	if c != nil {
		c.flushAttempts.Inc()
	}
}

func (c *Collector) RecordFlushFailure() {
	if c != nil {
		c.flushFailures.Inc()
	}
}

func (c *Collector) RecordUpstreamError() {
	if c != nil {
		c.upstreamErrors.Inc()
	}
}

func (c *Collector) RecordUpstreamLatency(seconds float64) {
	if c != nil {
		c.upstreamLatency.Observe(seconds)
	}
}

func (c *Collector) RecordCallStarted() {
	if c != nil {
		c.callsStarted.Inc()
	}
}

func (c *Collector) RecordCallCancelled() {
	if c != nil {
		c.callsCancelled.Inc()
	}
}

func (c *Collector) SetActiveTimers(n int) {
	if c != nil {
		c.activeTimers.Set(float64(n))
	}
}

// Handler exposes the /metrics endpoint for scraping.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
