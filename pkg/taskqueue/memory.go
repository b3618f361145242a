// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package taskqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config configures the in-memory queue.
type Config struct {
	// Workers is the number of concurrent task executors. Default 4.
	Workers int

	// DefaultMaxAttempts is the attempt budget for tasks that don't set
	// their own. Default 3.
	DefaultMaxAttempts int

	// DefaultRetryDelay is the wait between attempts for tasks that don't
	// set their own. Default 60s.
	DefaultRetryDelay time.Duration

	// Logger for queue events. Defaults to zap.NewNop.
	Logger *zap.Logger
}

// DefaultConfig returns the standard queue settings.
func DefaultConfig() Config {
	return Config{
		Workers:            4,
		DefaultMaxAttempts: 3,
		DefaultRetryDelay:  60 * time.Second,
	}
}

// Handle tracks a submitted task and allows cancellation.
type Handle struct {
	id   string
	kind string

	mu      sync.Mutex
	state   State
	attempt int
	err     error

	cancel  context.CancelFunc
	revoked bool
	done    chan struct{}
}

// ID returns the task's unique identifier.
func (h *Handle) ID() string { return h.id }

// Kind returns the task's kind label.
func (h *Handle) Kind() string { return h.kind }

// State returns the task's current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Attempt returns the number of attempts started so far.
func (h *Handle) Attempt() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempt
}

// Err returns the terminal error, if any.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Revoke cancels the task. A running attempt has its context cancelled;
// a queued or retrying task will not start another attempt.
func (h *Handle) Revoke() {
	h.mu.Lock()
	alreadyTerminal := h.state.Terminal()
	h.revoked = true
	h.mu.Unlock()
	if alreadyTerminal {
		return
	}
	h.cancel()
}

// Wait blocks until the task reaches a terminal state or ctx is cancelled.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

type job struct {
	handle *Handle
	fn     Func
	opts   Options
	ctx    context.Context
}

// MemoryQueue executes tasks on a fixed worker pool within the process.
type MemoryQueue struct {
	config Config
	logger *zap.Logger

	jobs   chan *job
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool

	// timers for scheduled retries, so Close can cancel them
	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

// NewMemoryQueue creates and starts an in-memory queue.
func NewMemoryQueue(config Config) *MemoryQueue {
	def := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.DefaultMaxAttempts <= 0 {
		config.DefaultMaxAttempts = def.DefaultMaxAttempts
	}
	if config.DefaultRetryDelay <= 0 {
		config.DefaultRetryDelay = def.DefaultRetryDelay
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	q := &MemoryQueue{
		config: config,
		logger: logger,
		jobs:   make(chan *job, config.Workers*4),
		stopCh: make(chan struct{}),
		timers: make(map[string]*time.Timer),
	}

	for i := 0; i < config.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}

	return q
}

// Enqueue submits a task for execution.
func (q *MemoryQueue) Enqueue(kind string, fn Func, opts Options) (*Handle, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, fmt.Errorf("queue is closed")
	}
	q.mu.Unlock()

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = q.config.DefaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = q.config.DefaultRetryDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		id:     uuid.New().String(),
		kind:   kind,
		state:  StatePending,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	j := &job{handle: h, fn: fn, opts: opts, ctx: ctx}

	select {
	case q.jobs <- j:
	case <-q.stopCh:
		cancel()
		return nil, fmt.Errorf("queue is closed")
	}

	q.logger.Debug("task enqueued",
		zap.String("task_id", h.id),
		zap.String("kind", kind),
		zap.Int("max_attempts", opts.MaxAttempts),
	)
	return h, nil
}

func (q *MemoryQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case j := <-q.jobs:
			q.execute(j)
		case <-q.stopCh:
			return
		}
	}
}

// execute runs one attempt of a job and schedules a retry or finalizes it.
func (q *MemoryQueue) execute(j *job) {
	h := j.handle

	h.mu.Lock()
	if h.revoked {
		h.mu.Unlock()
		q.finish(j, StateRevoked, context.Canceled)
		return
	}
	h.state = StateStarted
	h.attempt++
	attempt := h.attempt
	h.mu.Unlock()

	attemptCtx := j.ctx
	var cancel context.CancelFunc
	if j.opts.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(j.ctx, j.opts.Timeout)
	}

	err := j.fn(attemptCtx)
	if cancel != nil {
		cancel()
	}

	if err == nil {
		q.finish(j, StateSuccess, nil)
		return
	}

	// Revocation shows up as context cancellation on the parent ctx
	if j.ctx.Err() != nil {
		q.finish(j, StateRevoked, err)
		return
	}

	if attempt >= j.opts.MaxAttempts {
		q.logger.Warn("task failed permanently",
			zap.String("task_id", h.id),
			zap.String("kind", h.kind),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		q.finish(j, StateFailure, err)
		return
	}

	q.logger.Info("task attempt failed, scheduling retry",
		zap.String("task_id", h.id),
		zap.String("kind", h.kind),
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", j.opts.MaxAttempts),
		zap.Duration("retry_delay", j.opts.RetryDelay),
		zap.Error(err),
	)
	h.setState(StateRetry)
	q.scheduleRetry(j)
}

// scheduleRetry requeues a job after its retry delay without tying up a
// worker during the wait.
func (q *MemoryQueue) scheduleRetry(j *job) {
	h := j.handle
	timer := time.AfterFunc(j.opts.RetryDelay, func() {
		q.timersMu.Lock()
		delete(q.timers, h.id)
		q.timersMu.Unlock()

		select {
		case q.jobs <- j:
		case <-q.stopCh:
			q.finish(j, StateRevoked, fmt.Errorf("queue closed during retry wait"))
		}
	})

	q.timersMu.Lock()
	q.timers[h.id] = timer
	q.timersMu.Unlock()
}

// finish moves a job to a terminal state and fires its callback.
func (q *MemoryQueue) finish(j *job, state State, err error) {
	h := j.handle

	h.mu.Lock()
	if h.state.Terminal() {
		h.mu.Unlock()
		return
	}
	h.state = state
	if state != StateSuccess {
		h.err = err
	}
	h.mu.Unlock()

	h.cancel()
	close(h.done)

	switch state {
	case StateSuccess:
		if j.opts.OnSuccess != nil {
			j.opts.OnSuccess()
		}
	default:
		if j.opts.OnFailure != nil {
			j.opts.OnFailure(err)
		}
	}
}

// Close stops workers and cancels pending retries. In-flight attempts get
// their contexts cancelled.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	q.timersMu.Lock()
	for _, t := range q.timers {
		t.Stop()
	}
	q.timersMu.Unlock()

	close(q.stopCh)
	q.wg.Wait()
	return nil
}

var _ Queue = (*MemoryQueue)(nil)
