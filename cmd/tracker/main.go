package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/peerwire/peerwire/internal/config"
	"github.com/peerwire/peerwire/internal/fanout"
	"github.com/peerwire/peerwire/internal/registry"
	"github.com/peerwire/peerwire/internal/tracker"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
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

	reg := registry.New()
	fan := fanout.New(cfg.FanoutWorkers, logger)
	h := tracker.NewHandler(reg, fan, logger, cfg.TrackerForward)
	router := tracker.NewRouter(logger, h)

	srv := &http.Server{
		Addr:         ":" + cfg.TrackerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.TrackerPort).
			Str("env", cfg.Env).
			Msg("starting tracker")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("tracker failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down tracker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("tracker forced to shutdown")
	}

	logger.Info().Msg("tracker stopped")
}
