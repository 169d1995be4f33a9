// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/cinematch/internal/api"
	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/supervisor"
	"github.com/tomtom215/cinematch/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// limiterIdleTTL is how long a per-user write limiter may sit unused before
// the janitor evicts it.
const limiterIdleTTL = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Cinematch")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := initStore(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize rating store")
	}
	defer stores.Close()

	engine, sim, err := initRecommendEngine(cfg, stores.store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize recommendation engine")
	}

	pipeline := initRatingEvents(cfg, stores.store, engine)
	defer pipeline.Close()

	handler := api.NewHandler(stores.store, engine, cfg, version)
	if stores.db != nil {
		handler.SetDatabase(stores.db)
		handler.SetBreaker(stores.resilient)
	}
	if stores.wal != nil {
		handler.SetWAL(stores.wal)
	}

	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)))

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Data layer
	if stores.retryLoop != nil {
		tree.AddDataService(services.NewWALRetryLoopService(stores.retryLoop))
	}
	tree.AddDataService(services.NewCacheJanitorService(
		cfg.Recommend.JanitorInterval,
		logging.WithComponent("janitor"),
		services.JanitorTask{Name: "responses", Run: func(context.Context) int {
			return engine.CleanupCache()
		}},
		services.JanitorTask{Name: "write-limiters", Run: func(context.Context) int {
			return handler.WriteLimiter().Cleanup(limiterIdleTTL)
		}},
		services.JanitorTask{Name: "similarity-gauge", Run: func(context.Context) int {
			metrics.CacheEntries.WithLabelValues("similarity").Set(float64(sim.CacheLen()))
			return 0
		}},
	))

	// Messaging layer
	tree.AddMessagingService(pipeline.consumer)

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	logging.Info().Str("addr", httpServer.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	treeDone := false
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, stopping services")
	case err := <-errCh:
		treeDone = true
		if err != nil {
			logging.Error().Err(err).Msg("Supervisor tree terminated unexpectedly")
		}
	}
	stop()

	if !treeDone {
		select {
		case <-errCh:
		case <-time.After(15 * time.Second):
			logging.Warn().Msg("Timed out waiting for supervisor tree to stop")
		}
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop cleanly")
		}
	}

	logging.Info().Msg("Cinematch stopped")
}
