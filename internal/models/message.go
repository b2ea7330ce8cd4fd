package models

// Message represents a chat message carried through a channel log or a
// peer's inbox.
type Message struct {
	ID      string     `json:"id,omitempty"` // ULID, stamped on receipt
	From    PeerRecord `json:"from"`
	Channel string     `json:"channel,omitempty"`
	Text    string     `json:"message"`
	Raw     string     `json:"raw,omitempty"` // set when the payload was not valid JSON
	TS      int64      `json:"ts"`            // Unix ms receipt time
}

// ForwardResult records the outcome of one delivery attempt within a fan-out.
type ForwardResult struct {
	Peer  string `json:"peer"` // target peer ID (ip:port)
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
