// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

// Package main is the entry point for the Curator server.
//
// Curator mirrors one or more upstream media catalogs into a local DuckDB
// store and serves the catalog back through fast, per-user filtered list
// endpoints. Startup order:
//
//  1. Configuration: defaults, optional YAML file, CURATOR_ environment
//     variables (koanf layering)
//  2. Database: DuckDB mirror store, schema applied on open
//  3. Instance registry: upstream instances seeded from config, loaded
//     from the store
//  4. Engines: derivation runner, exclusion engine, sync engine, preview
//     prober, query service
//  5. Supervisor tree: sync layer (scheduler, websocket hub) and API
//     layer (HTTP server), each restarted independently on failure
//
// Shutdown is graceful on SIGINT/SIGTERM: the HTTP server drains in-flight
// requests, a running sync is cancelled at the next page boundary, and the
// store is checkpointed before close.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/curator-app/curator/internal/api"
	"github.com/curator-app/curator/internal/config"
	"github.com/curator-app/curator/internal/database"
	"github.com/curator-app/curator/internal/derive"
	"github.com/curator-app/curator/internal/exclusion"
	"github.com/curator-app/curator/internal/instances"
	"github.com/curator-app/curator/internal/logging"
	"github.com/curator-app/curator/internal/preview"
	"github.com/curator-app/curator/internal/query"
	"github.com/curator-app/curator/internal/scheduler"
	"github.com/curator-app/curator/internal/supervisor"
	syncpkg "github.com/curator-app/curator/internal/sync"
	ws "github.com/curator-app/curator/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config not available yet; the default logger reports the failure.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Caller: cfg.Log.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Dur("sync_interval", cfg.Sync.Interval).
		Msg("Starting Curator")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := instances.Load(ctx, db, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load instance registry")
	}

	// Engines. The websocket hub doubles as the sync event sink.
	hub := ws.NewHub()
	deriver := derive.NewRunner(db)
	exclusions := exclusion.NewEngine(db)
	engine := syncpkg.NewEngine(db, registry, &cfg.Sync, deriver, exclusions, hub)
	prober := preview.NewProber(&cfg.Prober)
	reprober := preview.NewReprober(db, registry, prober)
	entities := query.NewService(db)

	router := api.NewRouter(api.Deps{
		Entities:   entities,
		Sync:       engine,
		Exclusions: exclusions,
		Reprober:   reprober,
		Store:      db,
		Registry:   registry,
		Hub:        hub,
		Server:     &cfg.Server,
		Upstream:   &cfg.Upstream,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddSyncService(hub)
	tree.AddSyncService(scheduler.New(engine, &cfg.Sync))
	tree.AddAPIService(supervisor.NewHTTPService(httpServer, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)
	logging.Info().
		Str("addr", httpServer.Addr).
		Int("instances", len(registry.IDs())).
		Msg("Curator started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutting down")
		engine.Abort()
		cancel()
		<-errCh
	case err := <-errCh:
		// The tree only returns on its own when it cannot keep services up.
		logging.Error().Err(err).Msg("Supervisor tree terminated")
		cancel()
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Services did not stop in time")
	}

	if err := db.Checkpoint(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Final checkpoint failed")
	}
	logging.Info().Msg("Curator stopped")
}
