// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package pipeline

import (
	"github.com/crucible-labs/crucible/pkg/taskqueue"
	"github.com/crucible-labs/crucible/pkg/types"
)

// StatusView is the normalized polling view of a job.
type StatusView struct {
	ValidationID string                 `json:"validation_id"`
	TaskID       string                 `json:"task_id,omitempty"`
	Status       Status                 `json:"status"`
	Progress     int                    `json:"progress"`
	CurrentStep  string                 `json:"current_step"`
	Result       map[string]interface{} `json:"result,omitempty"`
}

// Status maps a job's task handle to the normalized status view. Unknown
// job ids return a StatusUnknown view rather than an error. Terminal jobs
// are evicted once persisted, so they also read as StatusUnknown here and
// callers resolve them from the stored record.
func (o *Orchestrator) Status(jobID string) StatusView {
	o.mu.Lock()
	r, ok := o.runs[jobID]
	o.mu.Unlock()
	if !ok {
		return StatusView{
			ValidationID: jobID,
			Status:       StatusUnknown,
			CurrentStep:  "Unknown validation",
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	view := StatusView{
		ValidationID: jobID,
		Status:       r.status,
		Progress:     ProgressFor(r.stage, r.status),
	}
	if r.handle != nil {
		view.TaskID = r.handle.ID()
	}

	switch r.status {
	case StatusPending:
		view.CurrentStep = "Initializing validation"
	case StatusProcessing:
		// A research task still sitting in the queue reads as pending
		if r.stage == types.StageResearch && r.handle != nil &&
			MapTaskState(r.handle.State()) == StatusPending {
			view.Status = StatusPending
			view.Progress = 0
			view.CurrentStep = "Initializing validation"
			return view
		}
		view.CurrentStep = StageDescription(r.stage)
	case StatusCompleted:
		view.CurrentStep = "Validation complete"
		view.Result = map[string]interface{}{
			"research":    r.outputs[types.StageResearch],
			"experiments": r.outputs[types.StageExperiment],
			"campaigns":   r.outputs[types.StageMarketing],
		}
	case StatusFailed:
		view.CurrentStep = "Validation failed: " + r.failure
	case StatusCancelled:
		view.CurrentStep = "Validation cancelled"
	}

	return view
}

// ProgressFor derives a coarse completion percentage from the active stage:
// research covers 0-33, experiment 33-66, marketing 66-99, with 100
// reserved for completion.
func ProgressFor(stage types.Stage, status Status) int {
	switch status {
	case StatusCompleted:
		return 100
	case StatusPending, StatusUnknown:
		return 0
	}

	switch stage {
	case types.StageResearch:
		return 16
	case types.StageExperiment:
		return 50
	case types.StageMarketing:
		return 83
	default:
		return 0
	}
}

// MapTaskState translates queue task states to the job-facing vocabulary.
func MapTaskState(s taskqueue.State) Status {
	switch s {
	case taskqueue.StatePending:
		return StatusPending
	case taskqueue.StateStarted, taskqueue.StateRetry:
		return StatusProcessing
	case taskqueue.StateSuccess:
		return StatusCompleted
	case taskqueue.StateFailure:
		return StatusFailed
	case taskqueue.StateRevoked:
		return StatusCancelled
	default:
		return StatusUnknown
	}
}
