package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerwire_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "peerwire_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 3},
		},
		[]string{"method", "path"},
	)

	// Tracker metrics
	PeersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peerwire_peers_registered_total",
			Help: "Total peer registration calls (including re-registrations)",
		},
	)

	ChannelJoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peerwire_channel_joins_total",
			Help: "Total channel join calls",
		},
	)

	MessagesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerwire_messages_stored_total",
			Help: "Total broadcast messages handled by the tracker",
		},
		[]string{"channel_type"}, // "regular" or "private"
	)

	// Fan-out metrics
	ForwardAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerwire_forward_attempts_total",
			Help: "Total per-peer delivery attempts by outcome",
		},
		[]string{"outcome"}, // "ok", "error", "rejected"
	)

	// Peer agent metrics
	InboundReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peerwire_inbound_received_total",
			Help: "Total inbound deliveries accepted into the inbox",
		},
	)

	DuplicatesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peerwire_duplicates_suppressed_total",
			Help: "Total inbound deliveries dropped by the dedupe window",
		},
	)

	InboxDrains = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peerwire_inbox_drains_total",
			Help: "Total inbox drain calls",
		},
	)
)
