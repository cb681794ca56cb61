// Package metrics exposes the service's Prometheus collectors
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the API and agent record into. It satisfies
// ttlcache.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	cacheLookupsTotal     *prometheus.CounterVec
	cacheStoreErrorsTotal *prometheus.CounterVec
	cacheEvictedTotal     prometheus.Counter

	upstreamRequestsTotal  *prometheus.CounterVec
	upstreamFallbacksTotal *prometheus.CounterVec

	themeResolutionsTotal *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	publishesTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on registry
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) initMetrics() {
	m.cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worldcss_cache_lookups_total",
			Help: "Cache lookups by key kind and result",
		},
		[]string{"kind", "result"}, // result: hit, miss
	)

	m.cacheStoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worldcss_cache_store_errors_total",
			Help: "Failed cache store operations",
		},
		[]string{"operation"},
	)

	m.cacheEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "worldcss_cache_evicted_total",
		Help: "Entries removed by the cache sweeper",
	})

	m.upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worldcss_upstream_requests_total",
			Help: "Requests to weather and geolocation providers",
		},
		[]string{"provider", "status"}, // status: success, error
	)

	m.upstreamFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worldcss_upstream_fallbacks_total",
			Help: "Responses served from built-in fallback data",
		},
		[]string{"provider"},
	)

	m.themeResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worldcss_theme_resolutions_total",
			Help: "Theme vectors produced, by phase",
		},
		[]string{"phase"},
	)

	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worldcss_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "path", "status_code"},
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worldcss_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.publishesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worldcss_theme_publishes_total",
			Help: "Theme vectors published over MQTT",
		},
		[]string{"status"},
	)
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.cacheLookupsTotal.Describe(ch)
	m.cacheStoreErrorsTotal.Describe(ch)
	m.cacheEvictedTotal.Describe(ch)
	m.upstreamRequestsTotal.Describe(ch)
	m.upstreamFallbacksTotal.Describe(ch)
	m.themeResolutionsTotal.Describe(ch)
	m.httpRequestsTotal.Describe(ch)
	m.httpRequestDuration.Describe(ch)
	m.publishesTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.cacheLookupsTotal.Collect(ch)
	m.cacheStoreErrorsTotal.Collect(ch)
	m.cacheEvictedTotal.Collect(ch)
	m.upstreamRequestsTotal.Collect(ch)
	m.upstreamFallbacksTotal.Collect(ch)
	m.themeResolutionsTotal.Collect(ch)
	m.httpRequestsTotal.Collect(ch)
	m.httpRequestDuration.Collect(ch)
	m.publishesTotal.Collect(ch)
}

func (m *Metrics) CacheHit(kind string) {
	m.cacheLookupsTotal.WithLabelValues(kind, "hit").Inc()
}

func (m *Metrics) CacheMiss(kind string) {
	m.cacheLookupsTotal.WithLabelValues(kind, "miss").Inc()
}

func (m *Metrics) CacheStoreError(op string) {
	m.cacheStoreErrorsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) CacheEvicted(n int) {
	m.cacheEvictedTotal.Add(float64(n))
}

// UpstreamRequest records a provider call outcome
func (m *Metrics) UpstreamRequest(provider string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.upstreamRequestsTotal.WithLabelValues(provider, status).Inc()
}

// UpstreamFallback records that fallback data was served in place of provider
func (m *Metrics) UpstreamFallback(provider string) {
	m.upstreamFallbacksTotal.WithLabelValues(provider).Inc()
}

// ThemeResolved records one resolved theme
func (m *Metrics) ThemeResolved(phase string) {
	m.themeResolutionsTotal.WithLabelValues(phase).Inc()
}

// HTTPRequest records a served request
func (m *Metrics) HTTPRequest(method, path string, status int, elapsed time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ThemePublished records an MQTT publish attempt
func (m *Metrics) ThemePublished(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.publishesTotal.WithLabelValues(status).Inc()
}
