// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package taskqueue provides asynchronous task execution with bounded
// retries, per-attempt timeouts, revocation, and completion callbacks used
// to chain pipeline stages.
package taskqueue

import (
	"context"
	"time"
)

// State is the lifecycle state of a submitted task.
type State string

const (
	// StatePending means the task is queued and not yet picked up
	StatePending State = "pending"

	// StateStarted means a worker is executing the task
	StateStarted State = "started"

	// StateRetry means the task failed and is waiting for its next attempt
	StateRetry State = "retry"

	// StateSuccess means the task completed
	StateSuccess State = "success"

	// StateFailure means the task exhausted its attempts
	StateFailure State = "failure"

	// StateRevoked means the task was cancelled before completing
	StateRevoked State = "revoked"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailure || s == StateRevoked
}

// Func is the unit of work a task executes. It must honor ctx cancellation.
type Func func(ctx context.Context) error

// Options bound a single task's execution.
type Options struct {
	// MaxAttempts is the total attempt budget including the first run.
	// Zero falls back to the queue default.
	MaxAttempts int

	// RetryDelay is the fixed wait between attempts. Zero falls back to
	// the queue default.
	RetryDelay time.Duration

	// Timeout caps a single attempt. Zero means no per-attempt cap beyond
	// the submitting context.
	Timeout time.Duration

	// OnSuccess runs after the task completes. It executes on the worker
	// goroutine, so continuation tasks should be enqueued, not run inline.
	OnSuccess func()

	// OnFailure runs after the final failed attempt or on revocation.
	OnFailure func(err error)
}

// Queue accepts tasks for asynchronous execution.
type Queue interface {
	// Enqueue submits a task. The returned handle tracks its lifecycle.
	Enqueue(kind string, fn Func, opts Options) (*Handle, error)

	// Close stops the queue and waits for in-flight tasks to finish.
	Close() error
}
