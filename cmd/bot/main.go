package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/app"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/config"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet; exit immediately.
		_, _ = os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger init error: " + err.Error() + "\n")
		os.Exit(2)
	}
	// Ensure logger flush; ignore sync error (common on some platforms).
	defer func() { _ = log.Sync() }()

	application, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("app init failed", zap.Error(err))
	}

	if err := application.Run(context.Background()); err != nil {
		log.Error("app run failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}
