// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package pipeline sequences the three validation stages over a task
// queue. Each stage is submitted only after the prior stage's success
// callback fires, stage output feeds the next stage's prompt, and status
// is tracked for polling clients.
package pipeline

import (
	"context"
	"time"

	"github.com/crucible-labs/crucible/pkg/types"
)

// Status is the job-facing lifecycle vocabulary.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusUnknown    Status = "unknown"
)

// Terminal reports whether s is a final job status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Request is an accepted validation request. Immutable once submitted.
type Request struct {
	BusinessIdea string
	TargetMarket string
	Industry     string
}

// Store receives job state transitions from the orchestrator. Only the
// orchestrator writes a job's record, so implementations need no cross-job
// coordination.
type Store interface {
	// SetProcessing records that a stage task was submitted for the job.
	SetProcessing(ctx context.Context, jobID string, stage types.Stage, taskID string) error

	// SaveStageOutput persists one stage's coerced output and raw text.
	SaveStageOutput(ctx context.Context, jobID string, stage types.Stage, output map[string]interface{}, rawOutput string) error

	// SetCompleted finalizes the job with aggregated cost and duration.
	SetCompleted(ctx context.Context, jobID string, totalCost float64, elapsed time.Duration) error

	// SetFailed records terminal failure after retry exhaustion.
	SetFailed(ctx context.Context, jobID string, stage types.Stage, cause string) error

	// SetCancelled records user-initiated cancellation.
	SetCancelled(ctx context.Context, jobID string) error
}

// Config bounds orchestrator behavior.
type Config struct {
	// MaxAttempts is the per-stage attempt budget. Default 3.
	MaxAttempts int

	// RetryDelay is the fixed wait between stage attempts. Default 60s.
	RetryDelay time.Duration

	// StageTimeout caps one stage attempt on the queue side. It should
	// exceed the agent's own wall-clock budget so the agent's timeout
	// fires first. Default 200s.
	StageTimeout time.Duration
}

// DefaultConfig returns the standard orchestration bounds.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		RetryDelay:   60 * time.Second,
		StageTimeout: 200 * time.Second,
	}
}
