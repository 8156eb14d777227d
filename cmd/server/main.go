// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/tomtom215/bookshelf/internal/api"
	"github.com/tomtom215/bookshelf/internal/config"
	"github.com/tomtom215/bookshelf/internal/logging"
	"github.com/tomtom215/bookshelf/internal/snapshot"
	"github.com/tomtom215/bookshelf/internal/supervisor"
	"github.com/tomtom215/bookshelf/internal/supervisor/services"
)

func main() {
	os.Exit(run())
}

// run wires and runs the server and returns the process exit code.
//
//nolint:gocyclo // Main initialization function with sequential setup steps
func run() int {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("dataset_dir", cfg.Dataset.Dir).
		Str("dataset_url", cfg.Dataset.BaseURL).
		Str("similarity", cfg.Recommend.Similarity).
		Bool("index_store", cfg.IndexStore.Enabled).
		Bool("cache", cfg.Cache.Enabled).
		Msg("Starting Bookshelf with supervisor tree")

	// === DATA LAYER COMPONENTS ===

	components, err := initData(cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize data layer")
		return 1
	}
	defer components.Close()

	holder := snapshot.NewHolder()
	builder := snapshot.NewBuilder(
		components.Source,
		components.Options,
		components.Store,
		components.Cache,
		logging.WithComponent("snapshot"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var initialFailed atomic.Bool
	snapshotSvc := services.NewSnapshotService(builder, holder, services.SnapshotServiceConfig{
		ReloadInterval: cfg.Dataset.ReloadInterval,
		BuildTimeout:   cfg.Recommend.Timeout,
		OnInitialFailure: func(err error) {
			initialFailed.Store(true)
			logging.Error().Err(err).Msg("Initial dataset load failed, shutting down")
			cancel()
		},
	}, logging.WithComponent("snapshot"))

	// === HTTP SERVER ===

	handler := api.NewHandler(holder, snapshotSvc, api.HandlerConfigFrom(cfg), logging.WithComponent("api"))
	router := api.NewRouter(handler, api.ChiMiddlewareConfigFromSecurity(&cfg.Security))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       4 * cfg.Server.Timeout,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return 1
	}

	// Data layer services
	tree.AddDataService(snapshotSvc)
	if components.Watcher != nil {
		tree.AddDataService(services.NewDatasetWatcherService(components.Watcher, snapshotSvc))
		logging.Info().Str("dir", cfg.Dataset.Dir).Msg("Dataset watcher added to supervisor tree")
	}

	// API layer services
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logging.WithComponent("http")))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	exitCode := 0
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
		exitCode = 1
	}
	if initialFailed.Load() {
		exitCode = 1
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Int("exit_code", exitCode).Msg("Application stopped")
	return exitCode
}
