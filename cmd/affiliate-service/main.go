package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dhoini/affiliate-service/internal/app"
	"github.com/Dhoini/affiliate-service/internal/config"
	"github.com/Dhoini/affiliate-service/pkg/logger"
)

func main() {
	// Контекст отменяется по SIGINT/SIGTERM для graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootLog := logger.New(logger.ParseLevel(os.Getenv("LOG_LEVEL")))
	bootLog.Infow("Affiliate service starting up...")

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_DIR"))
	if err != nil {
		bootLog.Fatalw("Failed to load configuration", "error", err)
	}

	log := initLogger(cfg)
	defer func() { _ = log.Sync() }()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("Failed to initialize application", "error", err)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		log.Errorw("Application stopped with error", "error", err)
		application.Close()
		os.Exit(1)
	}
	log.Infow("Cleanup finished. Goodbye!")
}

// initLogger в production пишет JSON, иначе цветной консольный вывод
func initLogger(cfg *config.Config) *logger.Logger {
	level := logger.ParseLevel(cfg.App.LogLevel)
	if cfg.App.Env == "production" {
		return logger.NewProduction(level)
	}
	return logger.New(level)
}
