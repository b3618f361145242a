// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crucible-labs/crucible/internal/api"
	"github.com/crucible-labs/crucible/internal/config"
	internallog "github.com/crucible-labs/crucible/internal/log"
	"github.com/crucible-labs/crucible/internal/service"
	"github.com/crucible-labs/crucible/internal/store"
	"github.com/crucible-labs/crucible/pkg/agent"
	"github.com/crucible-labs/crucible/pkg/llm"
	"github.com/crucible-labs/crucible/pkg/llm/anthropic"
	"github.com/crucible-labs/crucible/pkg/pipeline"
	"github.com/crucible-labs/crucible/pkg/taskqueue"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Crucible validation server",
	Long: `Start the Crucible server with the REST API.

The server will:
- Connect to the configured database and run migrations
- Start the in-memory task queue workers
- Initialize the LLM agent stack
- Listen for HTTP requests on the configured address

Press Ctrl+C to gracefully shutdown.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	internallog.SetLogger(logger)

	if cfg.LLM.APIKey == "" {
		logger.Warn("no LLM API key configured, set CRUCIBLE_LLM_API_KEY")
	}

	db, err := store.InitDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	dataStore := store.NewStore(db)
	defer func() { _ = dataStore.Close() }()

	if err := dataStore.InitialMigration(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	rateLimiterCfg := llm.DefaultRateLimiterConfig()
	rateLimiterCfg.RequestsPerSecond = cfg.LLM.RateLimitRPS
	rateLimiterCfg.Logger = logger

	provider := anthropic.NewClient(anthropic.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Endpoint:    cfg.LLM.Endpoint,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		RateLimiter: rateLimiterCfg,
	})

	agentCfg := agent.DefaultConfig()
	agentCfg.MaxTurns = cfg.Pipeline.MaxTurns
	agentCfg.MaxToolExecutions = cfg.Pipeline.MaxToolExecutions
	agentCfg.Logger = logger

	queue := taskqueue.NewMemoryQueue(taskqueue.Config{
		Workers:            cfg.Pipeline.Workers,
		DefaultMaxAttempts: cfg.Pipeline.MaxAttempts,
		DefaultRetryDelay:  cfg.Pipeline.RetryDelay(),
		Logger:             logger,
	})
	defer func() { _ = queue.Close() }()

	orchestrator := pipeline.NewOrchestrator(
		agent.New(provider, agentCfg),
		queue,
		dataStore.Validation(),
		pipeline.Config{
			MaxAttempts:  cfg.Pipeline.MaxAttempts,
			RetryDelay:   cfg.Pipeline.RetryDelay(),
			StageTimeout: cfg.Pipeline.StageTimeout(),
		},
		logger,
	)

	validations := service.NewValidationService(dataStore, orchestrator, logger)

	var retention *store.RetentionJob
	if cfg.Retention.Enabled {
		maxAge := time.Duration(cfg.Retention.MaxAgeDays) * 24 * time.Hour
		retention, err = store.NewRetentionJob(dataStore.Validation(), cfg.Retention.Schedule, maxAge, logger)
		if err != nil {
			return fmt.Errorf("failed to create retention job: %w", err)
		}
		if err := retention.Start(); err != nil {
			return fmt.Errorf("failed to start retention job: %w", err)
		}
	}

	server := api.NewServer(cfg.Server.Address, validations, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	if retention != nil {
		retention.Stop()
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	if err := server.Stop(shutdownTimeout); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
