package models

import (
	"fmt"
	"time"
)

// PeerRecord represents a chat node registered with the tracker.
// Identity is the ip:port pair; re-registration overwrites the record.
type PeerRecord struct {
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Name     string `json:"name"`
	LastSeen int64  `json:"last_seen,omitempty"` // Unix ms, tracker-stamped
}

// ID returns the identity key for this peer.
func (p PeerRecord) ID() string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

// Addr returns the dialable host:port address.
func (p PeerRecord) Addr() string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

// Valid reports whether the record carries the required identity fields.
func (p PeerRecord) Valid() bool {
	return p.IP != "" && p.Port > 0 && p.Port < 65536
}

// Touch refreshes the last-seen timestamp.
func (p *PeerRecord) Touch() {
	p.LastSeen = time.Now().UnixMilli()
}
