package peer

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/peerwire/peerwire/internal/api/middleware"
)

// NewRouter creates the agent's inbound HTTP router.
func NewRouter(logger zerolog.Logger, a *Agent) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Metrics)
	r.Use(middleware.MaxBodySize(8 * 1024))
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))

	// Browser clients may post to peers directly; preflights short-circuit
	// here.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(middleware.AllowOptions)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", a.handleHealth)
	r.Post("/p2p/receive", a.handleReceive)
	r.Get("/peer-inbox", a.handleInbox)

	return r
}

// handleReceive accepts one direct delivery. The body is handed to the agent
// as-is; non-JSON payloads are kept as raw text rather than rejected.
func (a *Agent) handleReceive(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}
	status := a.Receive(payload)
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// handleInbox drains the inbox and returns the queued messages.
func (a *Agent) handleInbox(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.DrainInbox())
}

// handleHealth reports the agent's lifecycle state.
func (a *Agent) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": a.State(),
		"peer":   a.self.ID(),
		"name":   a.self.Name,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
