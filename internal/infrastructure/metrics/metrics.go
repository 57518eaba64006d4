// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "learnpulse"

// Metrics holds every collector on a private registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	risksDetected   *prometheus.CounterVec
	alertsCreated   *prometheus.CounterVec
	alertsDismissed prometheus.Counter
	alertsExpired   prometheus.Counter
	interventions   *prometheus.CounterVec
	pathCache       *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		risksDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risks_detected_total",
			Help:      "Learning risks detected, by type and severity",
		}, []string{"risk_type", "severity"}),

		alertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Predictive alerts created, by alert type",
		}, []string{"alert_type"}),

		alertsDismissed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_dismissed_total",
			Help:      "Alerts dismissed by learners",
		}),

		alertsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_expired_total",
			Help:      "Alerts removed by the expiry sweep",
		}),

		interventions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interventions_total",
			Help:      "Intervention executions reaching a status",
		}, []string{"status"}),

		pathCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_cache_total",
			Help:      "Optimized path cache lookups, by result",
		}, []string{"result"}),

		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled jobs",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"job"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.risksDetected,
		m.alertsCreated,
		m.alertsDismissed,
		m.alertsExpired,
		m.interventions,
		m.pathCache,
		m.jobDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ─────────────────────────────────────────────────────────────────────────────
// Recorders
// ─────────────────────────────────────────────────────────────────────────────

func (m *Metrics) RiskDetected(riskType, severity string) {
	if m == nil {
		return
	}
	m.risksDetected.WithLabelValues(riskType, severity).Inc()
}

func (m *Metrics) AlertCreated(alertType string) {
	if m == nil {
		return
	}
	m.alertsCreated.WithLabelValues(alertType).Inc()
}

func (m *Metrics) AlertDismissed() {
	if m == nil {
		return
	}
	m.alertsDismissed.Inc()
}

func (m *Metrics) AlertExpired() {
	if m == nil {
		return
	}
	m.alertsExpired.Inc()
}

// InterventionStatus counts an execution entering status.
func (m *Metrics) InterventionStatus(status string) {
	if m == nil {
		return
	}
	m.interventions.WithLabelValues(status).Inc()
}

// PathCache counts a cache lookup as hit or miss.
func (m *Metrics) PathCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.pathCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveJob(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
