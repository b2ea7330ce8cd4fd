package tracker

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/peerwire/peerwire/internal/api/middleware"
)

// NewRouter creates and configures the tracker HTTP router.
func NewRouter(logger zerolog.Logger, h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))

	// CORS - allow all origins so browser clients on other ports can call
	// the tracker directly. OPTIONS preflights are answered here without
	// reaching business logic.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(middleware.AllowOptions)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)

	r.Post("/submit-info", h.SubmitInfo)
	r.Post("/add-list", h.AddList)
	r.Get("/get-list", h.GetList)
	r.Post("/broadcast-peer", h.BroadcastPeer)
	r.Post("/connect-peer", h.ConnectPeer)

	return r
}
