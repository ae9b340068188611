// Package main is the interactive surface atlas viewer.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/surface-atlas/internal/config"
	"github.com/Faultbox/surface-atlas/internal/logger"
	"github.com/Faultbox/surface-atlas/internal/observer"
	"github.com/Faultbox/surface-atlas/internal/viewer"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Surface Atlas Viewer ===")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hub *observer.Hub
	if cfg.Observer.Addr != "" {
		hub = observer.NewHub(logger.Named("observer"))
		go func() {
			if err := hub.Serve(ctx, cfg.Observer.Addr); err != nil {
				logger.Warn("observer stopped", zap.Error(err))
			}
		}()
	}

	app, err := viewer.NewApp(cfg, logger.Named("viewer"), hub)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}
