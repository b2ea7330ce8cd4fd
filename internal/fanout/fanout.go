// Package fanout implements best-effort message delivery to a batch of
// peers. Each target gets exactly one attempt bounded by a per-attempt
// timeout; a failed attempt is captured in that target's result entry and
// never aborts the remaining attempts or the batch.
package fanout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/peerwire/peerwire/internal/metrics"
	"github.com/peerwire/peerwire/internal/models"
)

// ReceivePath is the peer endpoint deliveries are posted to.
const ReceivePath = "/p2p/receive"

// DefaultWorkers bounds the number of concurrent delivery attempts.
const DefaultWorkers = 8

// Fanout delivers payloads to batches of peers.
type Fanout struct {
	workers int
	logger  zerolog.Logger
}

// New creates a Fanout with the given worker bound.
func New(workers int, logger zerolog.Logger) *Fanout {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Fanout{workers: workers, logger: logger}
}

// Deliver posts msg to every target's receive endpoint. It returns one
// result per target in input order regardless of completion order. Attempts
// run on a bounded worker pool; each is limited to timeout.
func (f *Fanout) Deliver(ctx context.Context, targets []models.PeerRecord, msg models.Message, timeout time.Duration) []models.ForwardResult {
	results := make([]models.ForwardResult, len(targets))
	if len(targets) == 0 {
		return results
	}

	body, err := json.Marshal(msg)
	if err != nil {
		for i, p := range targets {
			results[i] = models.ForwardResult{Peer: p.ID(), Error: err.Error()}
		}
		return results
	}

	client := &http.Client{Timeout: timeout}
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := f.workers
	if workers > len(targets) {
		workers = len(targets)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = f.attempt(ctx, client, targets[i], body, timeout)
			}
		}()
	}
	for i := range targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// attempt performs a single delivery and reports its outcome.
func (f *Fanout) attempt(ctx context.Context, client *http.Client, target models.PeerRecord, body []byte, timeout time.Duration) models.ForwardResult {
	res := models.ForwardResult{Peer: target.ID()}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s%s", target.Addr(), ReceivePath)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		res.Error = err.Error()
		metrics.ForwardAttempts.WithLabelValues("error").Inc()
		return res
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		res.Error = err.Error()
		metrics.ForwardAttempts.WithLabelValues("error").Inc()
		f.logger.Warn().Str("peer", res.Peer).Err(err).Msg("delivery failed")
		return res
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		res.Error = fmt.Sprintf("peer returned status %d", resp.StatusCode)
		metrics.ForwardAttempts.WithLabelValues("rejected").Inc()
		return res
	}

	res.OK = true
	metrics.ForwardAttempts.WithLabelValues("ok").Inc()
	return res
}
