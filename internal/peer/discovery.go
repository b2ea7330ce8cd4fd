package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/peerwire/peerwire/internal/models"
)

// DefaultUDPPort is the LAN announce port peers broadcast their records on.
const DefaultUDPPort = 9002

// AnnounceLAN sends a one-shot UDP broadcast of this agent's record so
// nearby peers can discover it without the tracker. Failures are logged,
// never raised; a UDP port of zero disables the announce.
func (a *Agent) AnnounceLAN() {
	if a.udpPort <= 0 {
		return
	}
	a.announceTo(fmt.Sprintf("255.255.255.255:%d", a.udpPort))
}

func (a *Agent) announceTo(addr string) {
	payload, err := json.Marshal(a.self)
	if err != nil {
		a.logger.Warn().Err(err).Msg("lan announce failed")
		return
	}
	conn, err := net.Dial("udp", addr)
	if err != nil {
		a.logger.Warn().Err(err).Msg("lan announce failed")
		return
	}
	defer conn.Close()
	if _, err := conn.Write(payload); err != nil {
		a.logger.Warn().Err(err).Msg("lan announce failed")
		return
	}
	a.logger.Info().Int("udp_port", a.udpPort).Msg("lan announce sent")
}

// listenLAN logs peer records announced on the LAN until ctx is cancelled.
// Discovery is informational only; announced peers still register with the
// tracker themselves. A UDP port of zero disables the listener.
func (a *Agent) listenLAN(ctx context.Context) {
	if a.udpPort <= 0 {
		return
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: a.udpPort})
	if err != nil {
		a.logger.Warn().Err(err).Int("udp_port", a.udpPort).Msg("lan listener failed to start")
		return
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 4096)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		var rec models.PeerRecord
		if err := json.Unmarshal(buf[:n], &rec); err != nil || !rec.Valid() {
			continue
		}
		if rec.IP == a.self.IP && rec.Port == a.self.Port {
			continue // our own broadcast looping back
		}
		a.logger.Info().
			Str("peer", rec.ID()).
			Str("name", rec.Name).
			Str("source", src.String()).
			Msg("lan peer discovered")
	}
}
