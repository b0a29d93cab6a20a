// Command curator builds a pathway network from the configured manifest and,
// when REBUILD_SCHEDULE is set, keeps rebuilding it on schedule while serving
// the read-only HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mimir-aip/pathway-graph/pkg/api"
	"github.com/mimir-aip/pathway-graph/pkg/config"
	"github.com/mimir-aip/pathway-graph/pkg/logging"
	"github.com/mimir-aip/pathway-graph/pkg/metadatastore"
	"github.com/mimir-aip/pathway-graph/pkg/models"
	"github.com/mimir-aip/pathway-graph/pkg/pipeline"
	"github.com/mimir-aip/pathway-graph/pkg/scheduler"
	"github.com/mimir-aip/pathway-graph/pkg/stats"
	"github.com/mimir-aip/pathway-graph/pkg/storage"
)

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Curator failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting curator", zap.String("environment", cfg.Environment))

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	files, err := storage.NewFileStore(filepath.Join(cfg.OutputDir, "networks"))
	if err != nil {
		return err
	}
	store, err := metadatastore.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Initialized SQLite storage", zap.String("path", cfg.DatabasePath))

	service := pipeline.NewService(files, store, logger, pipeline.Options{
		Organism:       cfg.Organism,
		SourceVersion:  cfg.SourceVersion,
		Strict:         cfg.StrictReconciliation,
		MaxValue:       cfg.MaxValue,
		ColorMap:       cfg.ColorMap,
		FallbackMean:   cfg.FallbackMean,
		FallbackStdDev: cfg.FallbackStdDev,
		FallbackSeed:   cfg.FallbackSeed,
	})
	if cfg.VersionCheckURL != "" {
		service.WithVersionChecker(pipeline.NewHTTPVersionChecker(cfg.VersionCheckURL, nil))
	}

	record, err := service.RunManifest(ctx, cfg.ManifestPath)
	if err != nil {
		if cfg.RebuildSchedule == "" {
			return err
		}
		// the schedule retries later
		logger.Error("Initial build failed", zap.Error(err))
	} else {
		logger.Info("Network ready",
			zap.String("build_id", record.ID),
			zap.String("file", record.FilePath),
			zap.String("status", string(record.Status)))
	}

	if cfg.RebuildSchedule == "" {
		return nil
	}
	return serve(ctx, cfg, logger, service)
}

// serve runs the rebuild scheduler and the API until ctx is cancelled
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, service *pipeline.Service) error {
	sched := scheduler.NewService(service, logger)
	if _, err := sched.Schedule(cfg.RebuildSchedule, cfg.ManifestPath); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	engine, err := stats.NewEngine(models.StatsMode(cfg.StatsMode), cfg.StatsWorkers)
	if err != nil {
		return err
	}
	server := api.NewServer(service, sched, engine, cfg.Port, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down curator")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
