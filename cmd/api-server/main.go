package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hackgods/bookmd/internal/api"
	"github.com/hackgods/bookmd/internal/bootstrap"
	"github.com/hackgods/bookmd/internal/config"
	"github.com/hackgods/bookmd/internal/logging"
	"github.com/hackgods/bookmd/internal/metrics"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.Init("api-server", "", "info")
		l.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.Init("api-server", cfg.Env, cfg.LogLevel)
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Str("version", version).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	openCtx, cancelOpen := context.WithTimeout(rootCtx, 10*time.Second)
	deps, err := bootstrap.Open(openCtx, cfg, logger, m)
	cancelOpen()
	if err != nil {
		logger.Fatal().Err(err).Msg("dependency setup failed")
	}
	defer deps.Close()

	handler := newHandler(cfg, deps, reg, m)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
	logger.Info().Msg("api-server stopped")
}

func newHandler(cfg config.Config, deps *bootstrap.Deps, reg *prometheus.Registry, m *metrics.Metrics) http.Handler {
	checks := []api.Check{{Name: "store", Critical: true, Ping: deps.DB.Ping}}
	if deps.Redis != nil {
		checks = append(checks, api.Check{
			Name:     "redis",
			Critical: true,
			Ping:     func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() },
		})
	}

	return api.NewRouter(api.RouterConfig{
		Service:   deps.Service(),
		Checks:    checks,
		Metrics:   m,
		Gatherer:  reg,
		Log:       deps.Log,
		Env:       cfg.Env,
		Version:   version,
		RateLimit: cfg.RateLimitRPS,
		Burst:     cfg.RateLimitBurst,
	})
}
