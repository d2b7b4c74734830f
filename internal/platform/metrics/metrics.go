package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	ApplicationsSubmitted prometheus.Counter
	ApplicationsApproved  prometheus.Counter
	ApplicationsRejected  prometheus.Counter
	Reapplications        prometheus.Counter
	PendingRequests       prometheus.Gauge
	ActiveSessions        prometheus.Gauge
	AuthFailures          prometheus.Counter
	PermissionChecks      *prometheus.CounterVec
	MigrationsPerformed   prometheus.Counter
	WatchSubscriptions    prometheus.Gauge
	EndpointLatency       *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		ApplicationsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "torque_applications_submitted_total",
			Help: "Total number of access applications submitted",
		}),
		ApplicationsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "torque_applications_approved_total",
			Help: "Total number of access applications approved",
		}),
		ApplicationsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "torque_applications_rejected_total",
			Help: "Total number of access applications rejected",
		}),
		Reapplications: promauto.NewCounter(prometheus.CounterOpts{
			Name: "torque_reapplications_total",
			Help: "Total number of reapplications after rejection",
		}),
		PendingRequests: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "torque_pending_requests",
			Help: "Current number of open approval requests",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "torque_active_sessions",
			Help: "Current number of active sessions",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "torque_auth_failures_total",
			Help: "Total number of authentication failures",
		}),
		PermissionChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "torque_permission_checks_total",
			Help: "Total number of permission checks, labeled by outcome",
		}, []string{"outcome"}),
		MigrationsPerformed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "torque_legacy_migrations_total",
			Help: "Total number of legacy permission migrations performed",
		}),
		WatchSubscriptions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "torque_watch_subscriptions",
			Help: "Current number of open profile watch subscriptions",
		}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "torque_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}
