package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/cloudgovern/policyaudit/internal/api/handlers"
	"github.com/cloudgovern/policyaudit/internal/api/middleware"
	"github.com/cloudgovern/policyaudit/internal/config"
	"github.com/cloudgovern/policyaudit/internal/pkg/logger"
	"github.com/cloudgovern/policyaudit/internal/pkg/metrics"
)

// Handlers groups the handlers wired into the router.
type Handlers struct {
	Health     *handlers.HealthHandler
	Assessment *handlers.AssessmentHandler
	Snapshot   *handlers.SnapshotHandler
}

// New builds the HTTP router with all middleware and routes attached.
func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.DefaultCORS(cfg.Server.AllowedOrigin))
	r.Use(middleware.RateLimit(50, 100))
	r.Use(metrics.Middleware)

	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/assessments", h.Assessment.Run)

		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", h.Snapshot.List)
			r.Get("/latest", h.Snapshot.Latest)
			r.Get("/delta", h.Snapshot.Delta)
			r.Get("/{id}", h.Snapshot.Get)
		})

		r.Get("/coverage", h.Snapshot.Coverage)
	})

	return r
}
