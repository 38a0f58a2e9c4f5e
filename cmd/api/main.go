package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/markdave123-py/CoachHub/internal/app"
	"github.com/markdave123-py/CoachHub/internal/config"
	"github.com/markdave123-py/CoachHub/internal/logging"
)

func main() {
	// Handle SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Initialize(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		logging.Logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	logging.Logger.Info("CoachHub API is running", "backend", cfg.EntityBackend)
	if err := application.Run(ctx); err != nil {
		logging.Logger.Error("server stopped", "error", err)
		application.Close()
		os.Exit(1)
	}
	logging.Logger.Info("shut down cleanly")
}
