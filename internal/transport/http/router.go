// Package httptransport wires the HTTP surface: middleware stack, route
// registration, and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	approvalHandler "torque/internal/approval/handler"
	identityHandler "torque/internal/identity/handler"
	"torque/internal/platform/health"
	"torque/internal/platform/metrics"
	"torque/internal/platform/middleware"
)

// Handlers carries the per-domain handlers the router mounts.
type Handlers struct {
	Identity *identityHandler.Handler
	Approval *approvalHandler.Handler
	Health   *health.Handler
}

// NewRouter wires all endpoints with the middleware stack. Protected routes
// sit behind bearer authentication; the profile watch stream additionally
// skips the request timeout so long-lived connections survive.
func NewRouter(h Handlers, validator middleware.TokenValidator, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	if m != nil {
		r.Use(instrument(m))
	}

	if h.Health != nil {
		h.Health.Register(r)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)

		h.Identity.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(validator))
			h.Identity.RegisterProtected(r)
			h.Approval.Register(r)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(validator))
		h.Approval.RegisterStream(r)
	})

	return r
}

// instrument records per-endpoint latency.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			m.EndpointLatency.WithLabelValues(r.Method, r.URL.Path).
				Observe(time.Since(start).Seconds())
		})
	}
}
