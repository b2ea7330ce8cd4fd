// Package peer implements the chat-node agent: it registers with the
// tracker, listens for direct deliveries, deduplicates them into a local
// inbox, and broadcasts messages to channel members.
package peer

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/peerwire/peerwire/internal/fanout"
	"github.com/peerwire/peerwire/internal/metrics"
	"github.com/peerwire/peerwire/internal/models"
	"github.com/peerwire/peerwire/internal/seen"
)

// Agent lifecycle states.
const (
	StateIdle        = "idle"
	StateRegistering = "registering"
	StateActive      = "active"
	StateDegraded    = "degraded" // registration failed; still locally functional
)

// Agent is a single chat node.
type Agent struct {
	self       models.PeerRecord
	trackerURL string
	instanceID string
	udpPort    int
	forward    time.Duration
	fan        *fanout.Fanout
	dedupe     *seen.Cache
	logger     zerolog.Logger

	mu    sync.Mutex
	state string
	inbox []models.Message
}

// Options configures a new Agent.
type Options struct {
	IP           string // registration address; auto-detected when empty
	Port         int
	Name         string
	TrackerURL   string
	UDPPort      int // LAN announce port; zero disables LAN discovery
	DedupeWindow time.Duration
	Forward      time.Duration // per-attempt broadcast timeout
	Workers      int
}

// New creates an Agent in the Idle state.
func New(opts Options, logger zerolog.Logger) *Agent {
	ip := opts.IP
	if ip == "" || ip == "0.0.0.0" {
		ip = localIP()
	}
	if opts.Forward <= 0 {
		opts.Forward = 3 * time.Second
	}

	instanceID := uuid.NewString()
	logger = logger.With().Str("instance", instanceID).Logger()

	return &Agent{
		self:       models.PeerRecord{IP: ip, Port: opts.Port, Name: opts.Name},
		trackerURL: opts.TrackerURL,
		instanceID: instanceID,
		udpPort:    opts.UDPPort,
		forward:    opts.Forward,
		fan:        fanout.New(opts.Workers, logger),
		dedupe:     seen.New(opts.DedupeWindow),
		logger:     logger,
		state:      StateIdle,
	}
}

// Self returns the agent's own peer record.
func (a *Agent) Self() models.PeerRecord {
	return a.self
}

// Logger returns the agent's instance-tagged logger, for callers that want
// request logs attributable to this agent.
func (a *Agent) Logger() zerolog.Logger {
	return a.logger
}

// State returns the agent's current lifecycle state.
func (a *Agent) State() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) setState(s string) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Start registers the agent with the tracker, joins the default channel, and
// announces itself on the LAN. Registration failure leaves the agent degraded
// (undiscoverable via the tracker but still able to receive direct
// deliveries) and is logged, not returned.
func (a *Agent) Start(ctx context.Context) {
	a.setState(StateRegistering)
	go a.listenLAN(ctx)

	if err := a.RegisterToTracker(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("tracker registration failed; running degraded")
		a.setState(StateDegraded)
		a.AnnounceLAN()
		return
	}
	if err := a.JoinChannel(ctx, "general"); err != nil {
		a.logger.Warn().Err(err).Msg("joining general failed")
	}
	a.setState(StateActive)
	a.AnnounceLAN()
	a.logger.Info().
		Str("peer", a.self.ID()).
		Str("tracker", a.trackerURL).
		Msg("agent active")
}

// Receive handles one inbound direct delivery. The payload is parsed as a
// message, falling back to a raw-string wrapper when it is not valid JSON.
// Duplicates inside the dedupe window are dropped without queuing.
// It returns "ok" or "duplicate_ignored".
func (a *Agent) Receive(payload []byte) string {
	var msg models.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		msg = models.Message{Raw: string(payload)}
	}
	msg.TS = time.Now().UnixMilli()
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}

	text := msg.Text
	if text == "" {
		text = msg.Raw
	}
	key := seen.Key(msg.From.IP, msg.From.Port, msg.Channel, text)
	if !a.dedupe.Add(key) {
		metrics.DuplicatesSuppressed.Inc()
		a.logger.Debug().
			Str("from", msg.From.ID()).
			Str("channel", msg.Channel).
			Msg("duplicate delivery ignored")
		return "duplicate_ignored"
	}

	a.mu.Lock()
	a.inbox = append(a.inbox, msg)
	a.mu.Unlock()
	metrics.InboundReceived.Inc()

	a.logger.Info().
		Str("from", msg.From.Name).
		Str("channel", msg.Channel).
		Str("message", text).
		Msg("message received")
	return "ok"
}

// DrainInbox atomically copies and clears the inbox. Messages enqueued
// strictly before the call are returned exactly once; concurrent arrivals
// land in the next drain.
func (a *Agent) DrainInbox() []models.Message {
	a.mu.Lock()
	out := a.inbox
	a.inbox = nil
	a.mu.Unlock()

	metrics.InboxDrains.Inc()
	if out == nil {
		out = []models.Message{}
	}
	return out
}

// Broadcast queries the tracker for the channel's members and delivers the
// message directly to each of them except this agent. Delivery failures are
// aggregated and logged, never raised.
func (a *Agent) Broadcast(ctx context.Context, text, channel string) []models.ForwardResult {
	peers, err := a.ChannelPeers(ctx, channel)
	if err != nil {
		a.logger.Warn().Err(err).Str("channel", channel).Msg("peer discovery failed")
		return nil
	}

	targets := make([]models.PeerRecord, 0, len(peers))
	for _, p := range peers {
		if p.IP == a.self.IP && p.Port == a.self.Port {
			continue
		}
		targets = append(targets, p)
	}
	if len(targets) == 0 {
		a.logger.Info().Str("channel", channel).Msg("no other peers in channel")
		return nil
	}

	msg := models.Message{
		ID:      ulid.Make().String(),
		From:    a.self,
		Channel: channel,
		Text:    text,
		TS:      time.Now().UnixMilli(),
	}

	results := a.fan.Deliver(ctx, targets, msg, a.forward)
	ok := 0
	for _, res := range results {
		if res.OK {
			ok++
		}
	}
	a.logger.Info().
		Str("channel", channel).
		Int("targets", len(targets)).
		Int("delivered", ok).
		Msg("broadcast complete")
	return results
}

// Close releases the agent's background resources.
func (a *Agent) Close() {
	a.dedupe.Close()
}

// localIP finds a best-effort LAN address for registration.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
