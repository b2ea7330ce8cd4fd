// Package tracker implements the rendezvous service's HTTP surface: peer
// registration, channel membership, discovery, and tracker-relayed broadcast.
package tracker

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/peerwire/peerwire/internal/fanout"
	"github.com/peerwire/peerwire/internal/registry"
)

// Handler contains shared dependencies for all tracker HTTP handlers.
type Handler struct {
	reg     *registry.Registry
	fan     *fanout.Fanout
	logger  zerolog.Logger
	forward time.Duration // per-attempt relay timeout
	started time.Time
}

// NewHandler creates a Handler around the given registry and fan-out.
func NewHandler(reg *registry.Registry, fan *fanout.Fanout, logger zerolog.Logger, forward time.Duration) *Handler {
	return &Handler{
		reg:     reg,
		fan:     fan,
		logger:  logger,
		forward: forward,
		started: time.Now(),
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
