// Package main provides the scribeflow transcription server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scribeflow/scribeflow/internal/artifact"
	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/db"
	"github.com/scribeflow/scribeflow/internal/engine"
	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/insights"
	"github.com/scribeflow/scribeflow/internal/llm"
	"github.com/scribeflow/scribeflow/internal/metrics"
	"github.com/scribeflow/scribeflow/internal/postprocess"
	"github.com/scribeflow/scribeflow/internal/server"
	"github.com/scribeflow/scribeflow/internal/template"
	"github.com/scribeflow/scribeflow/internal/worker"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	cfg := config.Load()

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if err := closeLog(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(logger)

	slog.Info("starting scribeflow-server", "addr", cfg.ListenAddr)

	if err := cfg.EnsureDirectories(); err != nil {
		slog.Error("failed to create storage directories", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	if err != nil {
		cancel()
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := store.InitSchema(ctx); err != nil {
		cancel()
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	if *wipeDB || os.Getenv("SCRIBEFLOW_WIPE_DB") == "true" {
		if _, err := store.QueryClearJobs(ctx, false); err != nil {
			cancel()
			slog.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
	}
	cancel()
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	settings, err := config.NewSettingsStore(cfg.SettingsPath)
	if err != nil {
		slog.Error("failed to load settings", "error", err)
		os.Exit(1)
	}

	catalog, err := llm.NewCatalog(cfg.PricingPath)
	if err != nil {
		slog.Error("failed to load model catalog", "error", err)
		os.Exit(1)
	}

	cleanupTemplates, err := template.NewCleanupService(cfg.TemplatesPath())
	if err != nil {
		slog.Error("failed to load cleanup templates", "error", err)
		os.Exit(1)
	}
	insightTemplates, err := template.NewInsightService(cfg.InsightTemplatesPath())
	if err != nil {
		slog.Error("failed to load insight templates", "error", err)
		os.Exit(1)
	}

	artifacts := artifact.NewStore(cfg.TranscribedPath(), logger)
	engines := engine.NewRegistry(cfg.WhisperURL, settings.Get)
	bus := events.NewBus(0)
	collector := metrics.NewCollector()

	pipeline := worker.New(store, engines, artifacts, settings.Get, bus, logger)
	pipeline.Metrics = collector

	cleanup := postprocess.NewService(store, artifacts, cleanupTemplates, catalog, settings.Get, bus, logger)
	cleanup.Metrics = collector

	insight := insights.NewService(store, artifacts, insightTemplates, catalog, settings.Get, bus, logger)
	insight.Metrics = collector

	srv := server.New(cfg, server.Deps{
		Store:            store,
		Engines:          engines,
		Artifacts:        artifacts,
		Settings:         settings,
		CleanupTemplates: cleanupTemplates,
		InsightTemplates: insightTemplates,
		Catalog:          catalog,
		Postprocess:      cleanup,
		Insights:         insight,
		Metrics:          collector,
		Bus:              bus,
	}, logger)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- pipeline.Run(runCtx)
	}()

	if err := srv.Run(runCtx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	if err := <-workerDone; err != nil && err != context.Canceled {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
