package utils

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracks performance metrics across the system
type MetricsCollector struct {
	registry *prometheus.Registry

	requestCount *prometheus.CounterVec
	errorCount   *prometheus.CounterVec
	voteCount    *prometheus.CounterVec

	// Latency per operation name, in seconds
	operationTimes *prometheus.HistogramVec

	systemStartTime time.Time
}

func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forum",
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by route and status class.",
		}, []string{"route", "status"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forum",
			Name:      "errors_total",
			Help:      "Application errors returned to callers, by error code.",
		}, []string{"code"}),
		voteCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forum",
			Name:      "votes_total",
			Help:      "Accepted votes, by target kind and direction.",
		}, []string{"target", "direction"}),
		operationTimes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "forum",
			Name:      "operation_duration_seconds",
			Help:      "Latency of engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		systemStartTime: time.Now(),
	}

	mc.registry.MustRegister(
		mc.requestCount,
		mc.errorCount,
		mc.voteCount,
		mc.operationTimes,
		collectors.NewGoCollector(),
	)
	return mc
}

func (mc *MetricsCollector) IncrementRequests(route string, status int) {
	mc.requestCount.WithLabelValues(route, statusClass(status)).Inc()
}

func (mc *MetricsCollector) IncrementErrors(code string) {
	mc.errorCount.WithLabelValues(code).Inc()
}

func (mc *MetricsCollector) IncrementVotes(target, direction string) {
	mc.voteCount.WithLabelValues(target, direction).Inc()
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.operationTimes.WithLabelValues(operationName).Observe(duration.Seconds())
}

// Uptime reports how long the collector has existed.
func (mc *MetricsCollector) Uptime() time.Duration {
	return time.Since(mc.systemStartTime)
}

// Registry exposes the underlying registry, mainly for tests.
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// Handler serves the collected metrics in the Prometheus text format.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
