package tracker

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/peerwire/peerwire/internal/metrics"
	"github.com/peerwire/peerwire/internal/models"
	"github.com/peerwire/peerwire/internal/registry"
)

// SubmitInfoResponse represents the registration response.
type SubmitInfoResponse struct {
	Status     string `json:"status"`
	PeersCount int    `json:"peers_count"`
}

// SubmitInfo handles peer registration. Registration is an upsert keyed on
// ip:port; re-registering refreshes the record without growing the table.
func (h *Handler) SubmitInfo(w http.ResponseWriter, r *http.Request) {
	var peer models.PeerRecord
	if err := json.NewDecoder(r.Body).Decode(&peer); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	count, err := h.reg.Register(peer)
	if err != nil {
		h.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.PeersRegistered.Inc()

	h.logger.Info().
		Str("peer", peer.ID()).
		Str("name", peer.Name).
		Int("peers", count).
		Msg("peer registered")

	h.JSON(w, http.StatusOK, SubmitInfoResponse{Status: "ok", PeersCount: count})
}

// AddListRequest represents the channel join request body.
type AddListRequest struct {
	Channel string             `json:"channel"`
	Peer    *models.PeerRecord `json:"peer"`
}

// AddList handles channel joins. Joining twice is a no-op; the channel is
// created on first join.
func (h *Handler) AddList(w http.ResponseWriter, r *http.Request) {
	var req AddListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Channel == "" || req.Peer == nil {
		h.Error(w, http.StatusBadRequest, "missing channel or peer")
		return
	}

	if err := h.reg.JoinChannel(req.Channel, *req.Peer); err != nil {
		h.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.ChannelJoins.Inc()

	h.logger.Info().
		Str("peer", req.Peer.ID()).
		Str("channel", req.Channel).
		Msg("peer joined channel")

	h.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ConnectPeerRequest represents the peer lookup request body.
type ConnectPeerRequest struct {
	To *models.PeerRecord `json:"to"`
}

// ConnectPeer returns the registered record for a peer identity, for callers
// that want to open a direct connection.
func (h *Handler) ConnectPeer(w http.ResponseWriter, r *http.Request) {
	var req ConnectPeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.To == nil {
		h.Error(w, http.StatusBadRequest, "missing to")
		return
	}

	peer, err := h.reg.Lookup(req.To.ID())
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			h.Error(w, http.StatusNotFound, "peer not found")
			return
		}
		h.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.JSON(w, http.StatusOK, map[string]models.PeerRecord{"peer": peer})
}
