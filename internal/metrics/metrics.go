// Package metrics holds Prometheus instruments that are used across the
// manager.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CachedNetworks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wpmn_cached_networks",
			Help: "Number of networks currently held in the directory cache.",
		})

	CacheLoadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpmn_cache_load_total",
			Help: "Directory cache loads by kind (network, site) and source (store, remote).",
		}, []string{"kind", "source"})

	CacheLoadErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpmn_cache_load_errors_total",
			Help: "Directory cache loads that failed, by kind.",
		}, []string{"kind"})

	CacheEvictTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpmn_cache_evict_total",
			Help: "Directory cache evictions by reason (idle, lru, invalidate).",
		}, []string{"reason"})

	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpmn_operations_total",
			Help: "Network CRUD operations by operation and result.",
		}, []string{"operation", "result"})

	SwitchDepth = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wpmn_switch_depth",
			Help:    "Context switch stack depth observed on every switch.",
			Buckets: []float64{1, 2, 3, 5, 8},
		})

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(
		CachedNetworks,
		CacheLoadTotal,
		CacheLoadErrorsTotal,
		CacheEvictTotal,
		OperationsTotal,
		SwitchDepth,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// Observe records one CRUD operation outcome.
func Observe(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	OperationsTotal.WithLabelValues(operation, result).Inc()
}
