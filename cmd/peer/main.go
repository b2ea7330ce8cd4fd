package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/peerwire/peerwire/internal/config"
	"github.com/peerwire/peerwire/internal/peer"
)

func main() {
	// Load configuration
	cfg := config.Load()

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	agent := peer.New(peer.Options{
		IP:           cfg.PeerIP,
		Port:         cfg.PeerPort,
		Name:         cfg.PeerName,
		TrackerURL:   cfg.TrackerURL,
		UDPPort:      cfg.PeerUDPPort,
		DedupeWindow: cfg.DedupeWindow,
		Forward:      cfg.PeerForward,
		Workers:      cfg.FanoutWorkers,
	}, logger)
	defer agent.Close()

	router := peer.NewRouter(agent.Logger(), agent)
	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.PeerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("peer", agent.Self().ID()).
			Str("name", cfg.PeerName).
			Msg("starting peer listener")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("peer listener failed to start")
		}
	}()

	// Register and join the default channel while the listener comes up.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agent.Start(ctx)

	// Interactive loop: lines broadcast to the current channel, "#name"
	// switches channel.
	go readLoop(ctx, agent, cancel)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down peer...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("peer forced to shutdown")
	}

	logger.Info().Msg("peer stopped")
}

// readLoop broadcasts stdin lines until EOF or an empty line.
func readLoop(ctx context.Context, agent *peer.Agent, cancel context.CancelFunc) {
	fmt.Println("Enter messages to broadcast (empty to quit). Prefix with '#channel' to switch channel.")
	channel := "general"
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			cancel()
			return
		}
		if strings.HasPrefix(line, "#") {
			channel = strings.TrimSpace(line[1:])
			fmt.Printf("Channel set to %s\n", channel)
			continue
		}
		agent.Broadcast(ctx, line, channel)
	}
	cancel()
}
