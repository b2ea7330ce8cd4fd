package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/peerwire/peerwire/internal/fanout"
	"github.com/peerwire/peerwire/internal/models"
	"github.com/peerwire/peerwire/internal/registry"
	"github.com/peerwire/peerwire/internal/tracker"
)

func newTestAgent(t *testing.T, window time.Duration) *Agent {
	t.Helper()
	a := New(Options{
		IP:           "127.0.0.1",
		Port:         10001,
		Name:         "test-agent",
		TrackerURL:   "http://127.0.0.1:1", // never dialed in unit tests
		DedupeWindow: window,
	}, zerolog.Nop())
	t.Cleanup(a.Close)
	return a
}

func delivery(t *testing.T, port int, channel, text string) []byte {
	t.Helper()
	payload, err := json.Marshal(models.Message{
		From:    models.PeerRecord{IP: "10.0.0.2", Port: port, Name: "sender"},
		Channel: channel,
		Text:    text,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return payload
}

func TestReceiveDedupeWindow(t *testing.T) {
	a := newTestAgent(t, 80*time.Millisecond)
	payload := delivery(t, 20001, "team", "hi")

	if got := a.Receive(payload); got != "ok" {
		t.Fatalf("first delivery should be ok, got %q", got)
	}
	if got := a.Receive(payload); got != "duplicate_ignored" {
		t.Fatalf("repeat within window should be suppressed, got %q", got)
	}

	time.Sleep(150 * time.Millisecond)
	if got := a.Receive(payload); got != "ok" {
		t.Fatalf("repeat after window should be accepted, got %q", got)
	}

	msgs := a.DrainInbox()
	if len(msgs) != 2 {
		t.Fatalf("suppressed duplicate must not be queued, got %d messages", len(msgs))
	}
}

func TestReceiveDistinctMessagesNotSuppressed(t *testing.T) {
	a := newTestAgent(t, time.Second)

	a.Receive(delivery(t, 20001, "team", "one"))
	a.Receive(delivery(t, 20001, "team", "two"))
	a.Receive(delivery(t, 20002, "team", "one"))  // different sender
	a.Receive(delivery(t, 20001, "other", "one")) // different channel

	if msgs := a.DrainInbox(); len(msgs) != 4 {
		t.Fatalf("distinct deliveries must all queue, got %d", len(msgs))
	}
}

func TestReceiveRawFallback(t *testing.T) {
	a := newTestAgent(t, time.Second)

	if got := a.Receive([]byte("not json at all")); got != "ok" {
		t.Fatalf("unparsable payload should fall back to raw, got %q", got)
	}
	msgs := a.DrainInbox()
	if len(msgs) != 1 {
		t.Fatalf("expected raw message queued, got %d", len(msgs))
	}
	if msgs[0].Raw != "not json at all" {
		t.Fatalf("raw payload should be preserved, got %q", msgs[0].Raw)
	}
	if msgs[0].TS == 0 {
		t.Fatal("message should be stamped with receipt time")
	}
}

func TestDrainInboxEmpty(t *testing.T) {
	a := newTestAgent(t, time.Second)
	if msgs := a.DrainInbox(); len(msgs) != 0 {
		t.Fatalf("fresh inbox should drain empty, got %d", len(msgs))
	}
}

func TestDrainInboxAtomic(t *testing.T) {
	a := newTestAgent(t, time.Hour)

	const total = 200
	payloads := make([][]byte, total)
	for i := range payloads {
		payloads[i] = delivery(t, 20001, "team", fmt.Sprintf("msg-%d", i))
	}

	var wg sync.WaitGroup
	drained := make(chan []models.Message, 256)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, p := range payloads {
			a.Receive(p)
		}
	}()

	var drainWg sync.WaitGroup
	for w := 0; w < 4; w++ {
		drainWg.Add(1)
		go func() {
			defer drainWg.Done()
			for i := 0; i < 50; i++ {
				drained <- a.DrainInbox()
			}
		}()
	}

	wg.Wait()
	drainWg.Wait()
	drained <- a.DrainInbox() // pick up any stragglers
	close(drained)

	seenMsgs := make(map[string]bool)
	for batch := range drained {
		for _, m := range batch {
			if seenMsgs[m.Text] {
				t.Fatalf("message %q drained twice", m.Text)
			}
			seenMsgs[m.Text] = true
		}
	}
	if len(seenMsgs) != total {
		t.Fatalf("expected %d distinct drained messages, got %d", total, len(seenMsgs))
	}
}

// startAgent binds an agent's router to a real loopback listener so other
// agents and the tracker can deliver to it.
func startAgent(t *testing.T, name string, trackerURL string) *Agent {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	a := New(Options{
		IP:           "127.0.0.1",
		Port:         port,
		Name:         name,
		TrackerURL:   trackerURL,
		DedupeWindow: 2 * time.Second,
		Forward:      3 * time.Second,
	}, zerolog.Nop())
	t.Cleanup(a.Close)

	srv := httptest.NewUnstartedServer(NewRouter(zerolog.Nop(), a))
	srv.Listener.Close()
	srv.Listener = ln
	srv.Start()
	t.Cleanup(srv.Close)
	return a
}

func startTracker(t *testing.T) string {
	t.Helper()
	reg := registry.New()
	fan := fanout.New(4, zerolog.Nop())
	h := tracker.NewHandler(reg, fan, zerolog.Nop(), 2*time.Second)
	srv := httptest.NewServer(tracker.NewRouter(zerolog.Nop(), h))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestEndToEndDirectBroadcast(t *testing.T) {
	trackerURL := startTracker(t)
	ctx := context.Background()

	a := startAgent(t, "alice", trackerURL)
	b := startAgent(t, "bob", trackerURL)

	a.Start(ctx)
	b.Start(ctx)
	if a.State() != StateActive || b.State() != StateActive {
		t.Fatalf("agents should be active, got %s / %s", a.State(), b.State())
	}

	if err := a.JoinChannel(ctx, "team"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := b.JoinChannel(ctx, "team"); err != nil {
		t.Fatalf("join: %v", err)
	}

	results := a.Broadcast(ctx, "hi", "team")
	if len(results) != 1 {
		t.Fatalf("expected delivery to exactly one peer (self excluded), got %v", results)
	}
	if !results[0].OK {
		t.Fatalf("delivery to bob should succeed: %+v", results[0])
	}

	msgs := b.DrainInbox()
	if len(msgs) != 1 {
		t.Fatalf("bob should have one message, got %d", len(msgs))
	}
	if msgs[0].Text != "hi" {
		t.Fatalf("expected text \"hi\", got %q", msgs[0].Text)
	}
	if msgs[0].From.IP != a.Self().IP || msgs[0].From.Port != a.Self().Port {
		t.Fatalf("from should match alice's identity, got %+v", msgs[0].From)
	}

	// Sender never receives its own broadcast.
	if own := a.DrainInbox(); len(own) != 0 {
		t.Fatalf("alice should not receive her own broadcast, got %v", own)
	}
}

func TestEndToEndTrackerRelay(t *testing.T) {
	trackerURL := startTracker(t)
	ctx := context.Background()

	a := startAgent(t, "alice", trackerURL)
	b := startAgent(t, "bob", trackerURL)
	a.Start(ctx)
	b.Start(ctx)

	if err := a.JoinChannel(ctx, "team"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := b.JoinChannel(ctx, "team"); err != nil {
		t.Fatalf("join: %v", err)
	}

	forwarded, err := a.RelayBroadcast(ctx, "via tracker", "team")
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if len(forwarded) != 1 || !forwarded[0].OK {
		t.Fatalf("expected successful relay to bob, got %v", forwarded)
	}

	msgs := b.DrainInbox()
	if len(msgs) != 1 || msgs[0].Text != "via tracker" {
		t.Fatalf("bob should have the relayed message, got %v", msgs)
	}
}

func TestDegradedWhenTrackerUnreachable(t *testing.T) {
	a := startAgent(t, "loner", "http://127.0.0.1:1")
	a.Start(context.Background())
	if a.State() != StateDegraded {
		t.Fatalf("expected degraded state, got %s", a.State())
	}

	// Still locally functional: direct deliveries are accepted.
	if got := a.Receive(delivery(t, 20001, "team", "hi")); got != "ok" {
		t.Fatalf("degraded agent should still receive, got %q", got)
	}
}

func TestBareOptionsOnPeerEndpoints(t *testing.T) {
	trackerURL := startTracker(t)
	a := startAgent(t, "alice", trackerURL)

	for _, path := range []string{"/p2p/receive", "/peer-inbox"} {
		url := fmt.Sprintf("http://%s%s", a.Self().Addr(), path)
		req, err := http.NewRequest(http.MethodOptions, url, nil)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("options %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("bare OPTIONS %s should succeed, got %d", path, resp.StatusCode)
		}
	}

	if msgs := a.DrainInbox(); len(msgs) != 0 {
		t.Fatalf("OPTIONS must not queue anything, got %v", msgs)
	}
}

func TestInboxEndpointDrains(t *testing.T) {
	trackerURL := startTracker(t)
	a := startAgent(t, "alice", trackerURL)
	a.Receive(delivery(t, 20001, "team", "queued"))

	url := fmt.Sprintf("http://%s/peer-inbox", a.Self().Addr())
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get inbox: %v", err)
	}
	defer resp.Body.Close()
	var msgs []models.Message
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "queued" {
		t.Fatalf("expected queued message, got %v", msgs)
	}

	// Second drain is empty.
	resp2, err := http.Get(url)
	if err != nil {
		t.Fatalf("get inbox: %v", err)
	}
	defer resp2.Body.Close()
	var again []models.Message
	if err := json.NewDecoder(resp2.Body).Decode(&again); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second drain should be empty, got %v", again)
	}
}
