// Package http assembles the portal's route tree: the shared middleware
// chain, the unauthenticated login route, the session-guarded application
// routes and the operational endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhandler "spiceportal/internal/adminusers/handler"
	approvalhandler "spiceportal/internal/approval/handler"
	authnhandler "spiceportal/internal/authn/handler"
	"spiceportal/internal/platform/metrics"
	"spiceportal/internal/platform/middleware"
	registrationhandler "spiceportal/internal/registration/handler"
	"spiceportal/pkg/httputil"
)

const requestTimeout = 30 * time.Second

// HealthCheck is one named readiness probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Dependencies carries everything the router mounts.
type Dependencies struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.TokenValidator

	Auth         *authnhandler.Handler
	Registration *registrationhandler.Handler
	AdminUsers   *adminhandler.Handler
	Approvals    *approvalhandler.Handler

	Health []HealthCheck
}

// NewRouter builds the portal's handler tree.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recovery(deps.Logger),
		middleware.RequestID,
		middleware.Logger(deps.Logger),
		middleware.Timeout(requestTimeout),
		middleware.ContentTypeJSON,
		middleware.Latency(deps.Metrics),
		middleware.Device,
	)

	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	deps.Auth.RegisterPublic(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))

		deps.Auth.Register(r)
		deps.Registration.Register(r)
		deps.Approvals.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(deps.Logger))
			deps.AdminUsers.Register(r)
		})
	})

	return r
}

func readiness(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.Check(r.Context()); err != nil {
				results[c.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, results)
	}
}
