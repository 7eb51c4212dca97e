// Package metrics exposes the Prometheus metrics of the API.
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

// PIN login outcomes.
const (
	LoginSuccess = "success"
	LoginFailed  = "failed"
	LoginLocked  = "locked"
	LoginInvalid = "invalid"
)

type Manager struct {
	namespace string
	registry  *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	pinLogins          *prometheus.CounterVec
	assignmentsCreated prometheus.Counter
	assignmentsSkipped prometheus.Counter
	assignmentsStarted prometheus.Counter
	statusOverrides    *prometheus.CounterVec
	evaluations        *prometheus.CounterVec
}

type Option func(*Manager)

func WithNamespace(ns string) Option {
	return func(m *Manager) { m.namespace = ns }
}

// WithGoCollectors adds the go runtime & process collectors to the registry.
func WithGoCollectors() Option {
	return func(m *Manager) {
		m.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
}

// NewManager registers every metric on its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "paku",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "route", "code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	m.pinLogins = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "auth",
		Name:      "pin_logins_total",
		Help:      "Total number of PIN login attempts by outcome",
	}, []string{"outcome"})

	m.assignmentsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "assignment",
		Name:      "created_total",
		Help:      "Total number of assignments created",
	})

	m.assignmentsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "assignment",
		Name:      "skipped_total",
		Help:      "Total number of requested assignments skipped as duplicates",
	})

	m.assignmentsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "assignment",
		Name:      "started_total",
		Help:      "Total number of assignments moved from Pending to In Progress",
	})

	m.statusOverrides = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "assignment",
		Name:      "status_overrides_total",
		Help:      "Total number of admin status overrides by new status",
	}, []string{"status"})

	m.evaluations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "assignment",
		Name:      "evaluations_total",
		Help:      "Total number of self-evaluations by sentiment",
	}, []string{"sentiment"})
}

func (m *Manager) Registry() *prometheus.Registry { return m.registry }

func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Manager) ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Manager) IncPinLogin(outcome string) {
	m.pinLogins.WithLabelValues(outcome).Inc()
}

func (m *Manager) AddAssignments(created, skipped int) {
	m.assignmentsCreated.Add(float64(created))
	m.assignmentsSkipped.Add(float64(skipped))
}

func (m *Manager) IncAssignmentStarted() {
	m.assignmentsStarted.Inc()
}

func (m *Manager) IncStatusOverride(status string) {
	m.statusOverrides.WithLabelValues(status).Inc()
}

func (m *Manager) IncEvaluation(sentiment string) {
	m.evaluations.WithLabelValues(sentiment).Inc()
}
