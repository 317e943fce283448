package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tourcraft/tourcraft/internal/config"
	"github.com/tourcraft/tourcraft/internal/server"
	"github.com/tourcraft/tourcraft/pkg/logger"
)

func main() {
	// LOG_LEVEL applies before the config is read so that config warnings honour it
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.SetFormat(cfg.Log.Format)
	logger.Init(cfg.Log.Level)
	defer func() { _ = logger.Sync() }()
	logger.Infof("config loaded: keycloak=%v mongo=%v redis=%v minio=%v relance=%v watcher=%v",
		cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "",
		cfg.Relance.Enabled, cfg.Relance.WatcherEnabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	if err := srv.Run(ctx); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
