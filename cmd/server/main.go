// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

// Command server runs the activity telemetry service: the ingest API, the
// durable NATS JetStream pipeline, the DuckDB activity store, and the query
// endpoints, supervised as one process.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coursepulse/coursepulse/internal/api"
	"github.com/coursepulse/coursepulse/internal/config"
	"github.com/coursepulse/coursepulse/internal/database"
	"github.com/coursepulse/coursepulse/internal/ingest"
	"github.com/coursepulse/coursepulse/internal/logging"
	"github.com/coursepulse/coursepulse/internal/supervisor"
	"github.com/coursepulse/coursepulse/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Starting CoursePulse")

	loc, err := cfg.Telemetry.Location()
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid telemetry timezone")
	}

	db, err := database.New(&cfg.Database, loc)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open activity database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := buildPipeline(ctx, cfg, db)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build activity pipeline")
	}
	defer pipeline.Close()

	gateway := ingest.NewGateway(pipeline.Publisher, loc, cfg.Telemetry.MaxBatchSize)
	handler := api.NewHandler(gateway, db, loc)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, &cfg.Server).Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree, err := supervisor.NewTree(
		slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout},
	)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build supervision tree")
	}

	if pipeline.Embedded != nil {
		tree.AddMessagingService(services.NewEmbeddedNATSService(pipeline.Embedded, cfg.Server.ShutdownTimeout))
	}
	tree.AddMessagingService(services.NewRouterService(pipeline.Router))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	logging.Info().Msg("CoursePulse ready")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Supervision tree exited")
	}

	// Give stragglers a moment, then report anything still running.
	time.Sleep(100 * time.Millisecond)
	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop cleanly")
		}
	}

	logging.Info().Msg("CoursePulse stopped")
}
