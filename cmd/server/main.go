// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

// Package main is the entry point for the Seraph Six server.
//
// Seraph Six tracks Destiny 2 clan rosters and shared activity. It
// periodically reconciles each registered clan's roster against the
// Bungie.net API, scans member activity histories for games played together,
// and records eligible games for clan statistics.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file, environment (Koanf v2)
//  2. Database: PostgreSQL connection and schema migration
//  3. Bungie client: rate-limited, retried, circuit-breaker protected
//  4. Job dispatcher: Watermill in-process bus with a pending-job dedup set
//  5. Reconcile pipeline: roster differ, activity scanner, scheduler
//  6. Supervisor tree: jobs layer and API layer under Suture
//  7. HTTP server: REST API plus Prometheus metrics
//
// # Configuration
//
// Set BUNGIE_API_KEY and DATABASE_URL at minimum. See config.yaml for the
// full set of options; every key can also be set via environment variables.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the dispatcher finishes running jobs, and pending-job
// claims are released for the next start.
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

	badger "github.com/dgraph-io/badger/v4"
	"golang.org/x/time/rate"

	"github.com/henworth/seraphsix/internal/api"
	"github.com/henworth/seraphsix/internal/bungie"
	"github.com/henworth/seraphsix/internal/cache"
	"github.com/henworth/seraphsix/internal/config"
	"github.com/henworth/seraphsix/internal/database"
	"github.com/henworth/seraphsix/internal/jobs"
	"github.com/henworth/seraphsix/internal/logging"
	"github.com/henworth/seraphsix/internal/models"
	"github.com/henworth/seraphsix/internal/reconcile"
	"github.com/henworth/seraphsix/internal/supervisor"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("version", version).Msg("Starting Seraph Six")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to migrate database schema")
	}
	logging.Info().Msg("Database ready")

	// Bungie client stack: rate limiter and retry policy inside, circuit
	// breaker outside so breaker trips count whole logical calls.
	policy := &bungie.RetryPolicy{
		MaxElapsed:       cfg.Bungie.MaxElapsed,
		InitialInterval:  500 * time.Millisecond,
		Limiter:          rate.NewLimiter(rate.Limit(cfg.Bungie.RequestsPerSecond), cfg.Bungie.Burst),
		LogWaitThreshold: time.Second,
	}
	client := bungie.NewClient(cfg.Bungie.BaseURL, cfg.Bungie.APIKey, policy)
	breaker := bungie.NewBreakerClient(client)

	gameCache := cache.New(cfg.Reconcile.CacheTTL)
	defer gameCache.Stop()

	// Pending-job claims survive restarts when a data dir is configured;
	// otherwise claims are in-memory and a restart re-runs pending scans.
	var pending jobs.PendingSet
	var badgerDB *badger.DB
	if cfg.Jobs.DataDir != "" {
		badgerDB, err = badger.Open(badger.DefaultOptions(cfg.Jobs.DataDir).WithLogger(nil))
		if err != nil {
			logging.Fatal().Err(err).Str("dir", cfg.Jobs.DataDir).Msg("Failed to open job state store")
		}
		defer func() {
			if err := badgerDB.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing job state store")
			}
		}()
		pending = jobs.NewBadgerPendingSet(badgerDB, "pending:")
		logging.Info().Str("dir", cfg.Jobs.DataDir).Msg("Persistent job dedup enabled")
	} else {
		pending = jobs.NewMemoryPendingSet()
	}

	dispatcher := jobs.NewGoChannelDispatcher(jobs.DispatcherConfig{
		Buffer:     cfg.Jobs.Buffer,
		Workers:    cfg.Jobs.Workers,
		PendingTTL: cfg.Jobs.PendingTTL,
	}, pending)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing dispatcher")
		}
	}()

	differ := reconcile.NewDiffer(breaker, db, dispatcher, gameCache)
	scanner := reconcile.NewScanner(breaker, db, models.TrackedModes(), cfg.Reconcile.HistoryCount, cfg.Reconcile.ScanConcurrency)
	handleJob := reconcile.HandleJob(differ, scanner, db)
	dispatcher.Register(jobs.JobReconcileClan, handleJob)
	dispatcher.Register(jobs.JobScanMember, handleJob)

	scheduler := reconcile.NewScheduler(db, dispatcher, cfg.Reconcile.Interval)

	apiHandler := api.NewHandler(db, gameCache, dispatcher, breaker, version)
	router := api.NewRouter(apiHandler, api.NewMiddleware(nil))
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddJobService(supervisor.NewDispatcherService(dispatcher))
	tree.AddJobService(scheduler)
	tree.AddAPIService(supervisor.NewHTTPService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().
		Str("addr", server.Addr).
		Dur("reconcile_interval", cfg.Reconcile.Interval).
		Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Stopped")
}
