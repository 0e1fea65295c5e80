// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

// Package main is the MenuBridge server entry point.
//
// Startup order:
//
//  1. Configuration (koanf: defaults, config file, MENUBRIDGE_ env vars)
//  2. Record store (Badger, or in-memory when store.path is empty)
//  3. Startup reconciliation of records a previous process left running
//  4. Sync engine: registry, rate limiter, circuit breakers, retry
//     scheduler, runner, coordinator
//  5. Progress delivery: websocket hub, optional NATS JetStream relay
//  6. HTTP API
//
// Everything long-running sits in a suture supervisor tree and shuts
// down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/menubridge/menubridge/internal/api"
	"github.com/menubridge/menubridge/internal/config"
	"github.com/menubridge/menubridge/internal/logging"
	"github.com/menubridge/menubridge/internal/menu"
	"github.com/menubridge/menubridge/internal/notify"
	"github.com/menubridge/menubridge/internal/platform"
	"github.com/menubridge/menubridge/internal/store"
	"github.com/menubridge/menubridge/internal/supervisor"
	"github.com/menubridge/menubridge/internal/supervisor/services"
	syncengine "github.com/menubridge/menubridge/internal/sync"
	ws "github.com/menubridge/menubridge/internal/websocket"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}

	logging.Info().
		Str("version", version).
		Int("port", cfg.Server.Port).
		Msg("MenuBridge starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	logging.Info().Msg("MenuBridge stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	// Record store and menu source. Badger is shared between both; an
	// empty path selects the in-memory store for ephemeral deployments.
	var (
		recordStore store.RecordStore
		menus       menu.Provider
	)
	if cfg.Store.Path != "" {
		badgerStore, err := store.OpenBadger(cfg.Store.Path)
		if err != nil {
			return err
		}
		recordStore = badgerStore
		menus = menu.NewBadgerProvider(badgerStore.DB())
		logging.Info().Str("path", cfg.Store.Path).Msg("record store opened")
	} else {
		recordStore = store.NewMemoryStore()
		menus = menu.NewStaticProvider()
		logging.Warn().Msg("store.path empty, state will not survive restarts")
	}
	defer func() {
		if err := recordStore.Close(); err != nil {
			logging.Err(err).Msg("close record store")
		}
	}()

	// Records left non-terminal by a crashed process would otherwise
	// look active forever.
	swept, err := store.Reconcile(ctx, recordStore, cfg.Reconcile.StaleAfter)
	if err != nil {
		return fmt.Errorf("startup reconciliation: %w", err)
	}
	if swept > 0 {
		logging.Warn().Int("operations", swept).Msg("stale operations failed during reconciliation")
	}

	// Sync engine core.
	registry := platform.NewRegistry(cfg.Platforms)
	platforms := registry.Platforms()
	if len(platforms) == 0 {
		return errors.New("no platforms enabled")
	}
	logging.Info().Int("platforms", len(platforms)).Msg("platform registry ready")

	limiter := syncengine.NewLimiter(cfg.Platforms)
	breakers := syncengine.NewBreakerSet(cfg.Breaker, platforms)
	scheduler := syncengine.NewScheduler(cfg.Retry, recordStore, limiter)
	hub := ws.NewHub()

	// Progress events always reach the websocket hub; NATS is layered
	// in when enabled.
	natsParts, err := initNATS(ctx, cfg)
	if err != nil {
		return err
	}
	defer natsParts.Shutdown(context.Background())

	var notifier syncengine.Notifier = hub
	if natsParts != nil {
		notifier = notify.NewFanout(hub, natsParts.Notifier)
	}

	runner := syncengine.NewRunner(recordStore, menus, registry, limiter, breakers, scheduler, notifier)
	coordinator := syncengine.NewCoordinator(ctx, recordStore, registry, runner, scheduler, notifier)

	// HTTP API.
	handler := api.NewHandler(coordinator, limiter, breakers, registry, hub, version)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, cfg.Server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Supervisor tree.
	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)
	tree.AddEngineService(scheduler)
	tree.AddMessagingService(hub)
	if natsParts != nil {
		tree.AddMessagingService(natsParts.Notifier)
	}
	tree.AddTransportService(services.NewHTTPService(httpServer, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", httpServer.Addr).Msg("serving")
	err = tree.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop in time")
		}
	}
	return err
}
