package tracker

import (
	"net/http"
	"time"
)

const version = "0.1.0"

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// Health handles the health check endpoint. The tracker holds all state in
// memory, so being able to answer is the whole check.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// StatsResponse represents aggregate tracker statistics.
type StatsResponse struct {
	TotalPeers    int `json:"total_peers"`
	TotalChannels int `json:"total_channels"`
	TotalMessages int `json:"total_messages"`
}

// Stats returns aggregate registry counts.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	peers, channels, messages := h.reg.Stats()
	h.JSON(w, http.StatusOK, StatsResponse{
		TotalPeers:    peers,
		TotalChannels: channels,
		TotalMessages: messages,
	})
}
