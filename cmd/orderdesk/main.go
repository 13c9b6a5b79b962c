package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rovshanmuradov/orderdesk/internal/app"
	"github.com/rovshanmuradov/orderdesk/internal/config"
	"github.com/rovshanmuradov/orderdesk/internal/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (yaml or json)")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(appLogger)
	}()

	if err := run(rootCtx, cfg, appLogger); err != nil {
		appLogger.Error("Order desk stopped with error", zap.Error(err))
		_ = logger.Sync(appLogger)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) error {
	appLogger.Info("Starting order desk", zap.String("addr", cfg.HTTPAddr))

	a, err := app.New(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			appLogger.Warn("Shutdown finished with errors", zap.Error(err))
		}
	}()

	a.Start()
	if err := a.Serve(ctx); err != nil {
		return err
	}

	appLogger.Info("Shutting down order desk")
	return nil
}
