// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package tools

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Registry holds the tools available to an agent, keyed by name.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. Registering a tool with a name that
// already exists replaces the previous tool.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns the tool with the given name, or false if none is registered.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools in unspecified order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Execute dispatches a tool call by name and measures execution time.
// An unknown tool name yields a failed Result rather than an error so the
// agent can surface the failure back to the model as a tool result.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]interface{}) (*Result, error) {
	tool, ok := r.Get(name)
	if !ok {
		return &Result{
			Success: false,
			Error: &Error{
				Code:    "tool_not_found",
				Message: fmt.Sprintf("no tool registered with name %q", name),
			},
		}, nil
	}

	start := time.Now()
	result, err := tool.Execute(ctx, params)
	if err != nil {
		return &Result{
			Success: false,
			Error: &Error{
				Code:    "execution_error",
				Message: err.Error(),
			},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}
	if result.ExecutionTimeMs == 0 {
		result.ExecutionTimeMs = time.Since(start).Milliseconds()
	}
	return result, nil
}
