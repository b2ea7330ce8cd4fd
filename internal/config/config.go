package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the tracker and peer processes.
type Config struct {
	Env string

	// Tracker
	TrackerPort    string
	TrackerForward time.Duration // per-attempt timeout for tracker-side relay

	// Peer agent
	PeerIP       string
	PeerPort     int
	PeerName     string
	PeerUDPPort  int // LAN announce port; zero disables LAN discovery
	TrackerURL   string
	DedupeWindow time.Duration
	PeerForward  time.Duration // per-attempt timeout for direct broadcast

	// Fan-out
	FanoutWorkers int
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("ENV", "development"),
		TrackerPort:    getEnv("TRACKER_PORT", "9001"),
		TrackerForward: getDuration("TRACKER_FORWARD_TIMEOUT", 2*time.Second),
		PeerIP:         os.Getenv("PEER_IP"),
		PeerPort:       getInt("PEER_PORT", 10000),
		PeerName:       os.Getenv("PEER_NAME"),
		PeerUDPPort:    getInt("PEER_UDP_PORT", 9002),
		TrackerURL:     getEnv("TRACKER_URL", "http://127.0.0.1:9001"),
		DedupeWindow:   getDuration("DEDUPE_WINDOW", 2*time.Second),
		PeerForward:    getDuration("PEER_FORWARD_TIMEOUT", 3*time.Second),
		FanoutWorkers:  getInt("FANOUT_WORKERS", 8),
	}

	if cfg.PeerName == "" {
		cfg.PeerName = fmt.Sprintf("peer-%d", cfg.PeerPort)
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
