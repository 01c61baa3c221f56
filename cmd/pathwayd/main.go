package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	pathwayhttp "github.com/pathwaylab/pathway-core/internal/api/http"
	"github.com/pathwaylab/pathway-core/internal/config"
	"github.com/pathwaylab/pathway-core/internal/event"
	"github.com/pathwaylab/pathway-core/internal/session"
	"github.com/pathwaylab/pathway-core/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "pathway.yaml", "Path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Log.Format == "text" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	}
	slog.Info("loaded config", "db_path", cfg.Database.DBPath, "port", cfg.Server.Port)

	limits := event.ShapeLimits{
		SessionIDMaxLength: cfg.Ingest.SessionIDMaxLength,
		EventIDMaxLength:   cfg.Ingest.EventIDMaxLength,
	}

	store, err := sqlite.NewAdapter(cfg.Database.DBPath, limits)
	if err != nil {
		slog.Error("failed to initialize event store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	composer := session.NewComposer(store)
	maxBodyBytes := int64(cfg.Ingest.MaxPayloadBytes)
	if maxBodyBytes <= 0 {
		maxBodyBytes = int64(cfg.Server.MaxBodySizeMB) * 1024 * 1024
	}
	handler := pathwayhttp.NewHandler(store, composer, maxBodyBytes)

	srv := pathwayhttp.New(cfg, handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("signal received, shutting down")
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		slog.Error("server stopped with error", "error", err)
	}

	slog.Info("shutdown complete")
}
