package tracker

import (
	"encoding/json"
	"net/http"

	"github.com/peerwire/peerwire/internal/metrics"
	"github.com/peerwire/peerwire/internal/models"
	"github.com/peerwire/peerwire/internal/registry"
)

// BroadcastPeerRequest represents the tracker-relayed broadcast request.
type BroadcastPeerRequest struct {
	From    *models.PeerRecord `json:"from"`
	Channel string             `json:"channel"`
	Message *string            `json:"message"`
}

// BroadcastPeerResponse represents the relay outcome: the member snapshot the
// relay ran against and one forwarding result per target.
type BroadcastPeerResponse struct {
	Status    string                 `json:"status"`
	Peers     []models.PeerRecord    `json:"peers"`
	Forwarded []models.ForwardResult `json:"forwarded"`
}

// BroadcastPeer persists a message to the channel log and relays it to every
// member except the sender. The member snapshot is taken under the registry
// lock; delivery happens afterwards so unreachable peers cannot stall other
// tracker calls. Messages for the reserved "private" channel are neither
// stored nor relayed.
func (h *Handler) BroadcastPeer(w http.ResponseWriter, r *http.Request) {
	var req BroadcastPeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.From == nil || req.Channel == "" || req.Message == nil {
		h.Error(w, http.StatusBadRequest, "missing fields")
		return
	}
	if !req.From.Valid() {
		h.Error(w, http.StatusBadRequest, "from peer missing ip or port")
		return
	}

	msg, members := h.reg.AppendBroadcast(req.Channel, *req.From, *req.Message)
	if req.Channel == registry.ReservedChannel {
		metrics.MessagesStored.WithLabelValues("private").Inc()
		h.JSON(w, http.StatusOK, BroadcastPeerResponse{
			Status:    "ok",
			Peers:     []models.PeerRecord{},
			Forwarded: []models.ForwardResult{},
		})
		return
	}
	metrics.MessagesStored.WithLabelValues("regular").Inc()

	targets := make([]models.PeerRecord, 0, len(members))
	for _, p := range members {
		if p.ID() == req.From.ID() {
			continue
		}
		targets = append(targets, p)
	}

	forwarded := h.fan.Deliver(r.Context(), targets, msg, h.forward)

	failed := 0
	for _, f := range forwarded {
		if !f.OK {
			failed++
		}
	}
	h.logger.Info().
		Str("from", req.From.ID()).
		Str("channel", req.Channel).
		Int("targets", len(targets)).
		Int("failed", failed).
		Msg("broadcast relayed")

	h.JSON(w, http.StatusOK, BroadcastPeerResponse{
		Status:    "ok",
		Peers:     members,
		Forwarded: forwarded,
	})
}
