package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/orderdesk/internal/app"
	"github.com/rovshanmuradov/orderdesk/internal/config"
	"github.com/rovshanmuradov/orderdesk/internal/export"
	"github.com/rovshanmuradov/orderdesk/internal/logger"
	"github.com/rovshanmuradov/orderdesk/internal/ui"
	"go.uber.org/zap"
)

const (
	logLines   = 200
	bridgeSize = 1024
)

func main() {
	configPath := flag.String("config", "", "Path to config file (yaml or json)")
	exportDir := flag.String("export-dir", "exports", "Directory for exported order files")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Console output would corrupt the alt screen; logs go to the ring
	// buffer shown in the dashboard and to the log file.
	logs := logger.NewBuffer(logLines)
	appLogger, err := logger.NewTUI(cfg.Log, logs)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(appLogger)
	}()

	appLogger.Info("Starting order desk TUI")

	a, err := app.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to assemble application", zap.Error(err))
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			appLogger.Warn("Shutdown finished with errors", zap.Error(err))
		}
	}()

	bridge := ui.NewBridge(bridgeSize, appLogger)
	detach := bridge.Attach(a.Manager())
	defer detach()

	model := ui.New(ui.Config{
		Controller: a.Manager(),
		Orders:     a.Store(),
		Bridge:     bridge,
		Logs:       logs,
		Exporter:   export.New(appLogger),
		ExportDir:  *exportDir,
		Logger:     appLogger,
	})

	program := tea.NewProgram(
		ui.NewSafeModel(model, appLogger),
		tea.WithAltScreen(),
		tea.WithContext(rootCtx),
	)

	a.Start()
	if _, err := program.Run(); err != nil && rootCtx.Err() == nil {
		appLogger.Error("TUI application failed", zap.Error(err))
	}

	sent, dropped := bridge.Stats()
	appLogger.Info("Shutting down order desk TUI",
		zap.Uint64("ui_updates", sent),
		zap.Uint64("ui_updates_dropped", dropped))
}
