package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/app"
	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/observability"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := config.ApplyFlags(cfg, os.Args[1:]); err != nil {
		log.Fatalf("invalid flags: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal("failed to build service", zap.Error(err))
	}
	defer application.Close()

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("store", cfg.Store.Driver),
			zap.String("version", cfg.App.Version))
		listenErr <- application.Fiber.Listen(cfg.App.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-listenErr:
		logger.Error("fiber listen", zap.Error(err))
	}

	if err := application.Fiber.ShutdownWithTimeout(shutdownGrace); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}
