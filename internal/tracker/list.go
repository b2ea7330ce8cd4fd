package tracker

import (
	"net/http"

	"github.com/peerwire/peerwire/internal/models"
)

// PeerListResponse represents the tracker-wide peer listing.
type PeerListResponse struct {
	Peers []models.PeerRecord `json:"peers"`
}

// ChannelListResponse represents a single channel's membership and log.
type ChannelListResponse struct {
	Channel  string              `json:"channel"`
	Peers    []models.PeerRecord `json:"peers"`
	Messages []models.Message    `json:"messages"`
}

// GetList handles peer discovery. Without a channel query parameter it
// returns every registered peer; with one it returns that channel's members
// and message log. Either way the response is a consistent snapshot: no
// concurrent mutation is observed half-applied.
func (h *Handler) GetList(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		h.JSON(w, http.StatusOK, PeerListResponse{Peers: h.reg.ListPeers()})
		return
	}

	peers, messages := h.reg.ChannelSnapshot(channel)
	h.JSON(w, http.StatusOK, ChannelListResponse{
		Channel:  channel,
		Peers:    peers,
		Messages: messages,
	})
}
