// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RetentionJob periodically deletes terminal validation records older
// than the configured age.
type RetentionJob struct {
	store      Validation
	schedule   string
	maxAge     time.Duration
	cronEngine *cron.Cron
	logger     *zap.Logger
}

// NewRetentionJob wires a cron-scheduled cleanup against the store.
// The schedule uses standard 5-field cron format.
func NewRetentionJob(store Validation, schedule string, maxAge time.Duration, logger *zap.Logger) (*RetentionJob, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	return &RetentionJob{
		store:      store,
		schedule:   schedule,
		maxAge:     maxAge,
		cronEngine: cron.New(),
		logger:     logger,
	}, nil
}

// Start registers the cleanup with the cron engine and begins running.
func (j *RetentionJob) Start() error {
	if _, err := j.cronEngine.AddFunc(j.schedule, j.runOnce); err != nil {
		return fmt.Errorf("failed to add cleanup job: %w", err)
	}
	j.cronEngine.Start()
	j.logger.Info("retention job started",
		zap.String("schedule", j.schedule),
		zap.Duration("max_age", j.maxAge))
	return nil
}

// Stop halts the cron engine and waits for a running cleanup to finish.
func (j *RetentionJob) Stop() {
	<-j.cronEngine.Stop().Done()
	j.logger.Info("retention job stopped")
}

func (j *RetentionJob) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-j.maxAge)
	deleted, err := j.store.DeleteTerminalOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("retention cleanup failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		j.logger.Info("retention cleanup removed old validations",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
}
