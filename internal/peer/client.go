package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/peerwire/peerwire/internal/models"
)

var httpClient = &http.Client{Timeout: 5 * time.Second}

// postJSON posts body to url and decodes the JSON response into out when out
// is non-nil.
func postJSON(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// getJSON fetches url and decodes the JSON response into out.
func getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RegisterToTracker submits this agent's record to the tracker.
func (a *Agent) RegisterToTracker(ctx context.Context) error {
	var resp struct {
		Status     string `json:"status"`
		PeersCount int    `json:"peers_count"`
	}
	if err := postJSON(ctx, a.trackerURL+"/submit-info", a.self, &resp); err != nil {
		return err
	}
	a.logger.Info().
		Str("peer", a.self.ID()).
		Int("peers", resp.PeersCount).
		Msg("registered with tracker")
	return nil
}

// JoinChannel adds this agent to a channel on the tracker.
func (a *Agent) JoinChannel(ctx context.Context, channel string) error {
	body := map[string]any{
		"channel": channel,
		"peer":    a.self,
	}
	if err := postJSON(ctx, a.trackerURL+"/add-list", body, nil); err != nil {
		return err
	}
	a.logger.Info().Str("channel", channel).Msg("joined channel")
	return nil
}

// ChannelPeers queries the tracker for the members of a channel, or for all
// registered peers when channel is empty.
func (a *Agent) ChannelPeers(ctx context.Context, channel string) ([]models.PeerRecord, error) {
	u := a.trackerURL + "/get-list"
	if channel != "" {
		u += "?channel=" + url.QueryEscape(channel)
	}
	var resp struct {
		Peers []models.PeerRecord `json:"peers"`
	}
	if err := getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	return resp.Peers, nil
}

// RelayBroadcast asks the tracker to persist a message and relay it to the
// channel's members on this agent's behalf.
func (a *Agent) RelayBroadcast(ctx context.Context, text, channel string) ([]models.ForwardResult, error) {
	body := map[string]any{
		"from":    a.self,
		"channel": channel,
		"message": text,
	}
	var resp struct {
		Status    string                 `json:"status"`
		Forwarded []models.ForwardResult `json:"forwarded"`
	}
	if err := postJSON(ctx, a.trackerURL+"/broadcast-peer", body, &resp); err != nil {
		return nil, err
	}
	return resp.Forwarded, nil
}
