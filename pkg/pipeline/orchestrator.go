// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crucible-labs/crucible/pkg/agent"
	"github.com/crucible-labs/crucible/pkg/taskqueue"
	"github.com/crucible-labs/crucible/pkg/types"
)

// Orchestrator drives validation jobs through the three-stage pipeline.
// It submits stage tasks to the queue and chains the next stage from the
// success callback, never blocking the caller.
type Orchestrator struct {
	agent    *agent.Agent
	queue    taskqueue.Queue
	store    Store
	config   Config
	logger   *zap.Logger
	progress types.ProgressCallback

	mu   sync.Mutex
	runs map[string]*run
}

// run is the orchestrator's in-flight view of one job.
type run struct {
	id      string
	request Request
	started time.Time

	mu        sync.Mutex
	status    Status
	stage     types.Stage
	handle    *taskqueue.Handle
	outputs   map[types.Stage]map[string]interface{}
	raws      map[types.Stage]string
	usage     types.Usage
	failure   string
	cancelled bool
}

// NewOrchestrator wires the orchestrator's collaborators. All dependencies
// are injected; the orchestrator holds no ambient global state.
func NewOrchestrator(a *agent.Agent, queue taskqueue.Queue, store Store, config Config, logger *zap.Logger) *Orchestrator {
	def := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = def.RetryDelay
	}
	if config.StageTimeout <= 0 {
		config.StageTimeout = def.StageTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		agent:  a,
		queue:  queue,
		store:  store,
		config: config,
		logger: logger,
		runs:   make(map[string]*run),
	}
}

// SetProgressCallback registers a callback invoked on stage transitions.
func (o *Orchestrator) SetProgressCallback(cb types.ProgressCallback) {
	o.progress = cb
}

// Start begins the pipeline for a job. A job id that is already tracked is
// rejected so a stage is never double-run.
func (o *Orchestrator) Start(ctx context.Context, jobID string, req Request) error {
	o.mu.Lock()
	if _, exists := o.runs[jobID]; exists {
		o.mu.Unlock()
		return fmt.Errorf("job %s already submitted", jobID)
	}
	r := &run{
		id:      jobID,
		request: req,
		started: time.Now(),
		status:  StatusPending,
		outputs: make(map[types.Stage]map[string]interface{}),
		raws:    make(map[types.Stage]string),
	}
	o.runs[jobID] = r
	o.mu.Unlock()

	o.logger.Info("validation pipeline started",
		zap.String("job_id", jobID),
		zap.String("business_idea", req.BusinessIdea),
	)

	return o.submitStage(ctx, r, types.StageResearch)
}

// submitStage enqueues one stage task and registers continuations.
func (o *Orchestrator) submitStage(ctx context.Context, r *run, stage types.Stage) error {
	def, err := agent.Stage(stage)
	if err != nil {
		return err
	}

	work := func(taskCtx context.Context) error {
		r.mu.Lock()
		cancelled := r.cancelled
		r.mu.Unlock()
		if cancelled {
			// A worker can pick the task up before the revoke from a
			// concurrent Cancel lands. The stage must not run.
			return nil
		}
		res, err := o.agent.Run(taskCtx, def, r.agentInput())
		if err != nil {
			return err
		}
		r.recordResult(stage, res)
		if err := o.store.SaveStageOutput(taskCtx, r.id, stage, res.Output, res.RawOutput); err != nil {
			o.logger.Error("failed to persist stage output",
				zap.String("job_id", r.id),
				zap.String("stage", string(stage)),
				zap.Error(err),
			)
		}
		return nil
	}

	handle, err := o.queue.Enqueue("validation:"+string(stage), work, taskqueue.Options{
		MaxAttempts: o.config.MaxAttempts,
		RetryDelay:  o.config.RetryDelay,
		Timeout:     o.config.StageTimeout,
		OnSuccess:   func() { o.advance(r, stage) },
		OnFailure:   func(err error) { o.fail(r, stage, err) },
	})
	if err != nil {
		return fmt.Errorf("submit stage %s: %w", stage, err)
	}

	r.mu.Lock()
	if r.cancelled {
		// Cancel landed between the terminal check and the enqueue. The
		// cancelled status stands; the fresh task must never run.
		r.mu.Unlock()
		handle.Revoke()
		return nil
	}
	r.status = StatusProcessing
	r.stage = stage
	r.handle = handle
	r.mu.Unlock()

	if err := o.store.SetProcessing(ctx, r.id, stage, handle.ID()); err != nil {
		o.logger.Error("failed to persist processing state",
			zap.String("job_id", r.id),
			zap.String("stage", string(stage)),
			zap.Error(err),
		)
	}

	o.emit(r, stage, StatusProcessing, StageDescription(stage))
	return nil
}

// advance runs on the queue worker after a stage succeeds and submits the
// next stage, or finalizes the job after the last one.
func (o *Orchestrator) advance(r *run, stage types.Stage) {
	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	next := stage.Next()
	if next == "" {
		o.complete(r)
		return
	}

	if err := o.submitStage(context.Background(), r, next); err != nil {
		o.fail(r, next, err)
	}
}

func (o *Orchestrator) complete(r *run) {
	r.mu.Lock()
	if r.cancelled || r.status.Terminal() {
		r.mu.Unlock()
		return
	}
	r.status = StatusCompleted
	cost := r.usage.CostUSD
	r.mu.Unlock()

	elapsed := time.Since(r.started)
	if err := o.store.SetCompleted(context.Background(), r.id, cost, elapsed); err != nil {
		o.logger.Error("failed to persist completion",
			zap.String("job_id", r.id),
			zap.Error(err),
		)
	}

	o.logger.Info("validation pipeline completed",
		zap.String("job_id", r.id),
		zap.Float64("total_cost_usd", cost),
		zap.Duration("elapsed", elapsed),
	)
	o.emit(r, types.StageMarketing, StatusCompleted, "Validation complete")
	o.evict(r.id)
}

func (o *Orchestrator) fail(r *run, stage types.Stage, cause error) {
	r.mu.Lock()
	if r.cancelled || r.status.Terminal() {
		r.mu.Unlock()
		return
	}
	r.status = StatusFailed
	if cause != nil {
		r.failure = cause.Error()
	}
	msg := r.failure
	r.mu.Unlock()

	if err := o.store.SetFailed(context.Background(), r.id, stage, msg); err != nil {
		o.logger.Error("failed to persist failure",
			zap.String("job_id", r.id),
			zap.Error(err),
		)
	}

	o.logger.Error("validation pipeline failed",
		zap.String("job_id", r.id),
		zap.String("stage", string(stage)),
		zap.String("cause", msg),
	)
	o.emit(r, stage, StatusFailed, "Validation failed: "+msg)
	o.evict(r.id)
}

// evict drops a terminal run from the in-memory table once its final state
// is persisted. Later status reads for the job resolve from the stored
// record instead.
func (o *Orchestrator) evict(jobID string) {
	o.mu.Lock()
	delete(o.runs, jobID)
	o.mu.Unlock()
}

// Cancel revokes the job's active task and marks it cancelled. The revoke
// signal is advisory to an in-flight LLM call, but the recorded status
// flips immediately and later stages never run. Returns false for unknown
// or already-terminal jobs.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) bool {
	o.mu.Lock()
	r, ok := o.runs[jobID]
	o.mu.Unlock()
	if !ok {
		return false
	}

	r.mu.Lock()
	if r.status.Terminal() {
		r.mu.Unlock()
		return false
	}
	r.cancelled = true
	r.status = StatusCancelled
	handle := r.handle
	stage := r.stage
	r.mu.Unlock()

	if handle != nil {
		handle.Revoke()
	}

	if err := o.store.SetCancelled(ctx, jobID); err != nil {
		o.logger.Error("failed to persist cancellation",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}

	o.logger.Info("validation cancelled",
		zap.String("job_id", jobID),
		zap.String("stage", string(stage)),
	)
	o.emit(r, stage, StatusCancelled, "Validation cancelled")
	o.evict(jobID)
	return true
}

func (o *Orchestrator) emit(r *run, stage types.Stage, status Status, message string) {
	if o.progress == nil {
		return
	}
	o.progress(types.ProgressEvent{
		ValidationID: r.id,
		Stage:        stage,
		Status:       string(status),
		Progress:     ProgressFor(stage, status),
		Message:      message,
		Timestamp:    time.Now(),
	})
}

// agentInput snapshots the job request plus completed stage outputs.
func (r *run) agentInput() agent.Input {
	r.mu.Lock()
	defer r.mu.Unlock()
	return agent.Input{
		BusinessIdea: r.request.BusinessIdea,
		TargetMarket: r.request.TargetMarket,
		Industry:     r.request.Industry,
		Research:     r.outputs[types.StageResearch],
		Experiments:  r.outputs[types.StageExperiment],
	}
}

func (r *run) recordResult(stage types.Stage, res *agent.StageResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[stage] = res.Output
	r.raws[stage] = res.RawOutput
	r.usage.Add(res.Usage)
}

// StageDescription is the human-readable step label for a stage.
func StageDescription(stage types.Stage) string {
	switch stage {
	case types.StageResearch:
		return "Market research in progress"
	case types.StageExperiment:
		return "Generating experiments"
	case types.StageMarketing:
		return "Creating marketing campaigns"
	default:
		return "Processing validation"
	}
}
