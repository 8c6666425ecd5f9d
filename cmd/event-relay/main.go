package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/bookmd/internal/bootstrap"
	"github.com/hackgods/bookmd/internal/config"
	"github.com/hackgods/bookmd/internal/event"
	"github.com/hackgods/bookmd/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.Init("event-relay", "", "info")
		l.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.Init("event-relay", cfg.Env, cfg.LogLevel)
	logger.Info().Str("env", cfg.Env).Dur("interval", cfg.RelayInterval).Msg("event-relay starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancelOpen := context.WithTimeout(rootCtx, 10*time.Second)
	deps, err := bootstrap.Open(openCtx, cfg, logger, nil)
	cancelOpen()
	if err != nil {
		logger.Fatal().Err(err).Msg("dependency setup failed")
	}
	defer deps.Close()

	if kind, _ := cfg.StoreKind(); kind == config.StoreMemory {
		logger.Warn().Msg("memory store has no shared outbox, the relay only sees its own process")
	}

	relay := deps.Relay()

	// Run once at startup
	runOnce(rootCtx, relay, logger)

	ticker := time.NewTicker(cfg.RelayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping event relay")
			return
		case <-ticker.C:
			runOnce(rootCtx, relay, logger)
		}
	}
}

func runOnce(ctx context.Context, relay *event.Relay, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := relay.RunOnce(runCtx)
	if err != nil {
		logger.Error().Err(err).Int("relayed", n).Msg("relay run error")
		return
	}
	logger.Info().Int("relayed", n).Dur("took", time.Since(start)).Msg("relay run complete")
}
