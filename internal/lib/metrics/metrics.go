// Package metrics provides Prometheus metrics for the COVID statistics API.
//
// Each Server owns one Metrics value backed by its own registry, so tests
// can build as many servers as they like without duplicate registration.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "covid_api"

// Metrics holds every collector the service records.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	authEvents          *prometheus.CounterVec
	rateLimitHits       *prometheus.CounterVec
	cacheLookups        *prometheus.CounterVec
	aggregationDuration *prometheus.HistogramVec
	missingCountries    prometheus.Gauge
	observationWrites   *prometheus.CounterVec
}

// New registers all collectors, plus Go runtime and process collectors,
// on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		authEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Registration, login and token verification outcomes.",
		}, []string{"event", "outcome"}),
		rateLimitHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"route"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Summary cache lookups by key and result.",
		}, []string{"key", "result"}),
		aggregationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "duration_seconds",
			Help:      "Time spent computing a summary.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"summary"}),
		missingCountries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "missing_countries",
			Help:      "Reference countries without data in the last country summary.",
		}),
		observationWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "observations",
			Name:      "writes_total",
			Help:      "Observation appends, updates and deletes.",
		}, []string{"operation"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) AuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimitHits.WithLabelValues(route).Inc()
}

func (m *Metrics) CacheLookup(key string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(key, result).Inc()
}

func (m *Metrics) ObserveAggregation(summary string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.aggregationDuration.WithLabelValues(summary).Observe(elapsed.Seconds())
}

func (m *Metrics) SetMissingCountries(n int) {
	if m == nil {
		return
	}
	m.missingCountries.Set(float64(n))
}

func (m *Metrics) ObservationWrite(operation string) {
	if m == nil {
		return
	}
	m.observationWrites.WithLabelValues(operation).Inc()
}
