// Package main implements the entry point for the media generation API
// server. It serves the dream and manifestation endpoints, the queue
// triggers, and runs the background workers that generate media.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tarikstafford/reve-app-sub000/internal/app"
	"github.com/tarikstafford/reve-app-sub000/internal/config"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/logger"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run loads configuration, connects to the database, applies migrations
// and serves until ctx is canceled.
func run(ctx context.Context) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	log.Info("database connection established", slog.String("driver", cfg.Database.Driver))

	if _, err := postgres.Migrate(ctx, db, cfg.Database.Driver, log); err != nil {
		return err
	}

	application, err := app.New(ctx, cfg, log, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	router, err := setupRouter(application)
	if err != nil {
		return err
	}
	return startHTTPServer(ctx, application, router)
}

// loadAppConfig loads the application configuration from environment
// variables or config.yaml.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.Bool("redis_wakeups", cfg.Queue.RedisURL != ""))
	return cfg, nil
}
