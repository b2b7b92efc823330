package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/app"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/config"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/logger"
	"github.com/samvad-hq/samvad-headline-pipeline/pkg/sources"
)

// loadConfig reads configuration and applies flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputPath = flagOutput
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, nil
}

// startRuntime loads config, initializes logging and assembles the runtime.
// The returned context is cancelled on SIGINT/SIGTERM.
func startRuntime(cmd *cobra.Command, publish bool) (context.Context, *app.Runtime, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	log, err := logger.Init(cfg.LogLevel, zap.String("app", cfg.AppName), zap.String("env", cfg.Env))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger.InfoObj("pipeline starting", "config", cfg)

	opts := app.Options{Publish: publish}
	if len(flagURLs) > 0 {
		reg, err := sources.FromURLs(flagURLs...)
		if err != nil {
			_ = logger.Close()
			return nil, nil, nil, fmt.Errorf("parse --url: %w", err)
		}
		opts.Sources = reg.All()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	rt, err := app.NewRuntime(ctx, cfg, log, opts)
	if err != nil {
		stop()
		logger.ErrorObj("failed to initialize pipeline", "error", err)
		_ = logger.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := rt.Close(); err != nil {
			logger.ErrorObj("runtime close failed", "error", err)
		}
		stop()
		_ = logger.Close()
	}
	return ctx, rt, cleanup, nil
}
