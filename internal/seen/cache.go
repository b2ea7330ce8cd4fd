// Package seen implements the time-bounded deduplication cache used by peer
// agents to suppress repeated inbound deliveries.
//
// A message may reach a peer more than once: the tracker relays on behalf of
// the sender while the sender may also deliver directly, and a flaky sender
// can retransmit. Each inbound delivery is reduced to a key derived from the
// sender identity, channel, and text; a key already present and unexpired is
// a duplicate and must be dropped without queuing.
//
// Entries expire deterministically at insert time + window, so dedupe
// behavior does not depend on cache size at the moment of insertion.
package seen

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultWindow is the interval during which an identical payload is
// treated as a repeat.
const DefaultWindow = 2 * time.Second

// Key builds the dedupe key for an inbound delivery. An empty channel maps
// to "general" so that deliveries with and without an explicit channel
// collapse onto the same key.
func Key(senderIP string, senderPort int, channel, text string) string {
	if channel == "" {
		channel = "general"
	}
	return strings.Join([]string{senderIP, strconv.Itoa(senderPort), channel, text}, "|")
}

// Cache is a concurrent-safe dedupe store with per-entry expiry.
type Cache struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry instant
	window  time.Duration
	stop    chan struct{}
}

// New creates a Cache with the given dedupe window and starts its reaper.
func New(window time.Duration) *Cache {
	if window <= 0 {
		window = DefaultWindow
	}
	c := &Cache{
		entries: make(map[string]time.Time),
		window:  window,
		stop:    make(chan struct{}),
	}
	go c.reap()
	return c
}

// Add records key with the configured expiry. It returns true if the key was
// not previously seen within the window (i.e. this delivery is new).
func (c *Cache) Add(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if exp, ok := c.entries[key]; ok && now.Before(exp) {
		return false // duplicate within the window
	}
	c.entries[key] = now.Add(c.window)
	return true
}

// Has returns true if key was added and has not expired.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.entries[key]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(c.entries, key)
		return false
	}
	return true
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the background reaper.
func (c *Cache) Close() {
	close(c.stop)
}

// reap periodically removes expired entries to bound memory usage.
func (c *Cache) reap() {
	ticker := time.NewTicker(c.window)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, exp := range c.entries {
				if now.After(exp) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
