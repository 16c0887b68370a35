package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Backend attempts per routed category. Watch for: failure ratio per backend.
	RouteAttemptsTotal *prometheus.CounterVec

	// Routes that advanced past the primary backend. Watch for: flapping primaries.
	RouteFailoversTotal *prometheus.CounterVec

	// Routes where every candidate failed. Watch for: category outages.
	RouteExhaustedTotal *prometheus.CounterVec

	// Outbound calls held by the throttle gate. Watch for: quota pressure.
	ThrottleWaitsTotal prometheus.Counter

	// Time spent waiting in the throttle gate. Watch for: p95 > period (quota too tight).
	ThrottleWaitSeconds prometheus.Histogram

	// FDA label API call rate by status. Watch for: error vs success ratio.
	FDAAPICallsTotal *prometheus.CounterVec

	// FDA label API latency. Watch for: p95 > 2s (upstream degradation).
	FDAAPIDuration *prometheus.HistogramVec

	// Retry attempts for the FDA label API. High retries = unstable upstream.
	FDAAPIRetriesTotal prometheus.Counter

	// Cache hits by cache type.
	CacheHitsTotal *prometheus.CounterVec

	// Reset timestamps recorded from response headers, per service.
	QuotaResetsRecordedTotal *prometheus.CounterVec

	// Rate limit denials (429). Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	RouteAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routeAttemptsTotal",
			Help: "Backend attempts made while routing a category",
		},
		[]string{"category", "backend", "status"},
	)
	RouteFailoversTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routeFailoversTotal",
			Help: "Routes served by a failover backend instead of the primary",
		},
		[]string{"category"},
	)
	RouteExhaustedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routeExhaustedTotal",
			Help: "Routes where every candidate backend failed",
		},
		[]string{"category"},
	)
	ThrottleWaitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "throttleWaitsTotal",
			Help: "Outbound calls delayed by the throttle gate",
		},
	)
	ThrottleWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "throttleWaitSeconds",
			Help:    "Time spent waiting in the throttle gate, in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
	FDAAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fdaApiCallsTotal",
			Help: "Total number of FDA label API calls",
		},
		[]string{"status"},
	)
	FDAAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fdaApiDurationSeconds",
			Help:    "FDA label API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	FDAAPIRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fdaApiRetriesTotal",
			Help: "Total number of retry attempts for FDA label API calls",
		},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of cache hits",
		},
		[]string{"cacheType"},
	)
	QuotaResetsRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotaResetsRecordedTotal",
			Help: "Rate-limit reset timestamps recorded from response headers",
		},
		[]string{"service"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		RouteAttemptsTotal, RouteFailoversTotal, RouteExhaustedTotal,
		ThrottleWaitsTotal, ThrottleWaitSeconds,
		FDAAPICallsTotal, FDAAPIDuration, FDAAPIRetriesTotal,
		CacheHitsTotal, QuotaResetsRecordedTotal,
		RateLimitDeniedTotal,
	)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
