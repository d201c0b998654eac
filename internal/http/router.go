package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig collects the handlers mounted by NewRouter. Nil handlers are
// left out.
type RouterConfig struct {
	Jobs    *JobHandler
	Health  *HealthHandler
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewRouter builds the operational router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Health)
	}

	metricsHandler := cfg.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	if cfg.Jobs != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", cfg.Jobs.List)
			r.Post("/{name}/run", cfg.Jobs.Run)
		})
	}

	return r
}
