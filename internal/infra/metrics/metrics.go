// Package metrics owns the prometheus registry and the collectors the service reports.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"tasktracker/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tasktracker"

// Outcome labels for authentication counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeExpired = "expired"
	OutcomeInvalid = "invalid"
	OutcomeMissing = "missing"
)

// Metrics groups the collectors behind one registry so tests can build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	requestCount      *prometheus.CounterVec
	requestLatency    *prometheus.HistogramVec
	loginCount        *prometheus.CounterVec
	tokenVerifyCount  *prometheus.CounterVec
	registrationCount *prometheus.CounterVec
}

// New registers runtime collectors plus the HTTP and auth counters.
func New(cfg *config.Config) *Metrics {
	serviceName := namespace
	if cfg != nil && cfg.Env.ServiceName != "" {
		serviceName = cfg.Env.ServiceName
	}
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Number of HTTP requests handled.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request latency in seconds.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),
		loginCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "auth",
			Name:        "logins_total",
			Help:        "Login attempts by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		tokenVerifyCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "auth",
			Name:        "token_verifications_total",
			Help:        "Bearer token checks by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		registrationCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "auth",
			Name:        "registrations_total",
			Help:        "Registration attempts by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCount,
		m.requestLatency,
		m.loginCount,
		m.tokenVerifyCount,
		m.registrationCount,
	)

	return m
}

// RegisterDB exposes connection pool statistics for db.
func (m *Metrics) RegisterDB(db *sql.DB, dbName string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, dbName))
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requestCount.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveLogin(outcome string) {
	m.loginCount.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveTokenVerification(outcome string) {
	m.tokenVerifyCount.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRegistration(outcome string) {
	m.registrationCount.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer is exposed for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
