// Package registry owns the tracker's shared state: the peer table and the
// channel table (membership plus message log). All mutations happen inside a
// single critical section; network I/O never runs under the lock, so a slow
// or unreachable peer cannot block registry operations for other callers.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/peerwire/peerwire/internal/models"
)

// DefaultChannel is the channel every peer is auto-joined to on registration.
const DefaultChannel = "general"

// ReservedChannel marks direct-only traffic: messages addressed to it are
// never persisted and never relayed by the tracker.
const ReservedChannel = "private"

// ErrNotFound is returned when a peer identity is not registered.
var ErrNotFound = errors.New("registry: peer not found")

// channel holds one channel's membership and ordered message log.
type channel struct {
	members  map[string]struct{} // peer IDs
	messages []models.Message
}

// Registry is the tracker's shared peer and channel state.
type Registry struct {
	mu       sync.Mutex
	peers    map[string]models.PeerRecord
	channels map[string]*channel
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		peers:    make(map[string]models.PeerRecord),
		channels: make(map[string]*channel),
	}
}

// Register upserts a peer record by its ip:port identity and auto-joins it
// to the default channel. It returns the post-registration peer count.
func (r *Registry) Register(peer models.PeerRecord) (int, error) {
	if !peer.Valid() {
		return 0, errors.New("registry: peer record missing ip or port")
	}
	peer.Touch()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[peer.ID()] = peer
	r.joinLocked(DefaultChannel, peer.ID())
	return len(r.peers), nil
}

// JoinChannel idempotently adds the peer to the channel's member set,
// creating the channel if absent.
func (r *Registry) JoinChannel(name string, peer models.PeerRecord) error {
	if name == "" {
		return errors.New("registry: channel name required")
	}
	if !peer.Valid() {
		return errors.New("registry: peer record missing ip or port")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.joinLocked(name, peer.ID())
	return nil
}

// ListPeers returns a snapshot of every registered peer, ordered by ID.
func (r *Registry) ListPeers() []models.PeerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.PeerRecord, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ChannelSnapshot returns the channel's current members (resolved against the
// live peer table; unregistered members are skipped) and a copy of its
// message log. An unknown channel yields empty slices.
func (r *Registry) ChannelSnapshot(name string) ([]models.PeerRecord, []models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[name]
	if !ok {
		return []models.PeerRecord{}, []models.Message{}
	}
	peers := r.resolveLocked(ch)
	messages := make([]models.Message, len(ch.messages))
	copy(messages, ch.messages)
	return peers, messages
}

// AppendBroadcast records a broadcast message in the channel log, ensures the
// sender is a member, and returns a snapshot of the channel's members taken
// in the same critical section. Broadcasts to the reserved channel are not
// persisted and yield an empty snapshot.
//
// Only map reads and writes happen here; the caller performs delivery
// outside the registry lock.
func (r *Registry) AppendBroadcast(name string, from models.PeerRecord, text string) (models.Message, []models.PeerRecord) {
	msg := models.Message{
		ID:      ulid.Make().String(),
		From:    from,
		Channel: name,
		Text:    text,
		TS:      time.Now().UnixMilli(),
	}
	if name == ReservedChannel {
		return msg, []models.PeerRecord{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ch := r.joinLocked(name, from.ID())
	ch.messages = append(ch.messages, msg)
	return msg, r.resolveLocked(ch)
}

// Lookup returns the record registered under the given peer ID.
func (r *Registry) Lookup(peerID string) (models.PeerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[peerID]
	if !ok {
		return models.PeerRecord{}, ErrNotFound
	}
	return p, nil
}

// Stats returns aggregate counts for the stats endpoint.
func (r *Registry) Stats() (peers, channels, messages int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	peers = len(r.peers)
	channels = len(r.channels)
	for _, ch := range r.channels {
		messages += len(ch.messages)
	}
	return peers, channels, messages
}

// joinLocked adds peerID to the named channel, creating it if needed.
// Callers must hold the lock.
func (r *Registry) joinLocked(name, peerID string) *channel {
	ch, ok := r.channels[name]
	if !ok {
		ch = &channel{members: make(map[string]struct{})}
		r.channels[name] = ch
	}
	ch.members[peerID] = struct{}{}
	return ch
}

// resolveLocked maps a channel's member IDs to live peer records, ordered by
// ID for deterministic snapshots. Callers must hold the lock.
func (r *Registry) resolveLocked(ch *channel) []models.PeerRecord {
	ids := make([]string, 0, len(ch.members))
	for id := range ch.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.PeerRecord, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.peers[id]; ok {
			out = append(out, p)
		}
	}
	return out
}
