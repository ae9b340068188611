// Package main runs the surface atlas allocator headless over a generated
// scene and reports allocation statistics.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/surface-atlas/internal/bench"
	"github.com/Faultbox/surface-atlas/internal/config"
	"github.com/Faultbox/surface-atlas/internal/logger"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := initLogger(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Surface Atlas Bench ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := bench.New(cfg, logger.Named("bench"))
	if err != nil {
		logger.Error("failed to create bench", zap.Error(err))
		os.Exit(1)
	}

	report, runErr := r.Run(ctx)
	if err := r.Close(); err != nil {
		logger.Error("closing bench", zap.Error(err))
	}
	if runErr != nil {
		logger.Error("bench error", zap.Error(runErr))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}

func initLogger(cfg config.LoggingConfig) error {
	var fileCfg logger.FileConfig
	if cfg.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.LogFile)
		fileCfg.MaxSizeMB = cfg.MaxSizeMB
		fileCfg.MaxBackups = cfg.MaxBackups
	}
	return logger.InitWithFileConfig(cfg.Level, fileCfg, true)
}
