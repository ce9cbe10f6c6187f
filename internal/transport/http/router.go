// Package httptransport assembles the public HTTP surface: domain handlers
// behind the standard middleware chain plus operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/platform/middleware"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/platform/httputil"
)

// Registrar mounts a group of routes on the router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports one dependency's availability.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Check names a readiness dependency.
type Check struct {
	Name    string
	Checker HealthChecker
}

// NewRouter wires the domain handlers behind request ID, recovery, client
// metadata, and access logging. Operational endpoints stay outside the
// chain so scrapes and probes do not pollute access logs.
func NewRouter(logger *slog.Logger, checks []Check, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestID)
		r.Use(middleware.Recovery(logger))
		r.Use(middleware.ClientMetadata(logger))
		r.Use(middleware.Logger(logger))
		for _, h := range handlers {
			h.Register(r)
		}
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(checks))

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz probes every configured dependency. Any failure flips the
// response to 503 so load balancers stop routing traffic here.
func handleReadyz(checks []Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failed := map[string]string{}
		for _, check := range checks {
			if err := check.Checker.Health(r.Context()); err != nil {
				failed[check.Name] = err.Error()
			}
		}
		if len(failed) > 0 {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "degraded",
				"failed": failed,
			})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
