// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package agent runs a single validation stage as a bounded conversation
// with an LLM provider. The loop offers the stage's tools to the model,
// executes requested calls, and feeds results back until the model stops
// or a cap is hit. Final output is coerced to the stage schema.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crucible-labs/crucible/pkg/coerce"
	"github.com/crucible-labs/crucible/pkg/tools"
	"github.com/crucible-labs/crucible/pkg/types"
)

// Config bounds agent execution.
type Config struct {
	// MaxTurns caps conversation round-trips with the model
	MaxTurns int

	// MaxToolExecutions caps total tool calls across all turns
	MaxToolExecutions int

	// Timeout is the wall-clock cap for a whole stage run
	Timeout time.Duration

	// Retry controls LLM call retry behavior
	Retry RetryConfig

	// Logger for agent events. Defaults to zap.NewNop.
	Logger *zap.Logger
}

// DefaultConfig returns the standard stage execution bounds.
func DefaultConfig() Config {
	return Config{
		MaxTurns:          5,
		MaxToolExecutions: 10,
		Timeout:           180 * time.Second,
		Retry:             DefaultRetryConfig(),
	}
}

// Agent executes validation stages against an LLM provider.
type Agent struct {
	llm      types.LLMProvider
	registry *tools.Registry
	coercer  *coerce.Coercer
	config   Config
	logger   *zap.Logger
}

// New creates an agent for the given provider.
func New(provider types.LLMProvider, config Config) *Agent {
	if config.MaxTurns <= 0 {
		config.MaxTurns = 5
	}
	if config.MaxToolExecutions <= 0 {
		config.MaxToolExecutions = 10
	}
	if config.Timeout <= 0 {
		config.Timeout = 180 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		llm:      provider,
		registry: tools.NewRegistry(),
		coercer:  coerce.New(provider),
		config:   config,
		logger:   logger,
	}
}

// StageResult is the outcome of a stage run.
type StageResult struct {
	// Output is the schema-conforming stage document
	Output map[string]interface{}

	// RawOutput is the model's final free-form text
	RawOutput string

	// Outcome records how the output was obtained
	Outcome coerce.Outcome

	// Usage aggregates tokens and cost across all calls in the run,
	// including the coercion repair call if one was made
	Usage types.Usage

	// Turns is the number of model round-trips taken
	Turns int

	// ToolExecutions is the number of tool calls performed
	ToolExecutions int

	// Elapsed is the stage wall-clock duration
	Elapsed time.Duration
}

// Run executes a stage definition against the given input.
func (a *Agent) Run(ctx context.Context, stage *StageDefinition, input Input) (*StageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	start := time.Now()
	result := &StageResult{}

	for _, t := range stage.Tools {
		a.registry.Register(t)
	}

	messages := []types.Message{
		{Role: "system", Content: stage.SystemPrompt, Timestamp: start},
		{Role: "user", Content: stage.BuildPrompt(input), Timestamp: start},
	}

	a.logger.Info("stage started",
		zap.String("stage", string(stage.Name)),
		zap.String("provider", a.llm.Name()),
		zap.String("model", a.llm.Model()),
	)

	var finalContent string
	done := false

	for turn := 0; turn < a.config.MaxTurns && !done; turn++ {
		resp, err := a.chatWithRetry(ctx, messages, stage.Tools)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.Name, err)
		}
		result.Turns++
		result.Usage.Add(resp.Usage)

		if len(resp.ToolCalls) == 0 {
			finalContent = resp.Content
			done = true
			break
		}

		messages = append(messages, types.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
			Timestamp: time.Now(),
		})

		for _, call := range resp.ToolCalls {
			if result.ToolExecutions >= a.config.MaxToolExecutions {
				return nil, fmt.Errorf("stage %s: tool execution limit of %d exceeded",
					stage.Name, a.config.MaxToolExecutions)
			}
			result.ToolExecutions++

			toolResult, err := a.registry.Execute(ctx, call.Name, call.Input)
			if err != nil {
				return nil, fmt.Errorf("stage %s: tool %s: %w", stage.Name, call.Name, err)
			}

			a.logger.Debug("tool executed",
				zap.String("stage", string(stage.Name)),
				zap.String("tool", call.Name),
				zap.Bool("success", toolResult.Success),
				zap.Int64("duration_ms", toolResult.ExecutionTimeMs),
			)

			messages = append(messages, types.Message{
				Role:      "tool",
				ToolUseID: call.ID,
				Content:   formatToolResult(toolResult),
				Timestamp: time.Now(),
			})
		}
	}

	if !done {
		return nil, fmt.Errorf("stage %s: turn limit of %d exceeded without final answer",
			stage.Name, a.config.MaxTurns)
	}

	coerced := a.coercer.Coerce(ctx, finalContent, stage.OutputSchema)
	result.Usage.Add(coerced.Usage)
	result.Output = coerced.Document
	result.RawOutput = finalContent
	result.Outcome = coerced.Outcome
	result.Elapsed = time.Since(start)

	a.logger.Info("stage completed",
		zap.String("stage", string(stage.Name)),
		zap.String("outcome", string(coerced.Outcome)),
		zap.Int("turns", result.Turns),
		zap.Int("tool_executions", result.ToolExecutions),
		zap.Int("total_tokens", result.Usage.TotalTokens),
		zap.Float64("cost_usd", result.Usage.CostUSD),
		zap.Duration("elapsed", result.Elapsed),
	)

	return result, nil
}

// formatToolResult serializes a tool result for the conversation.
func formatToolResult(res *tools.Result) string {
	if !res.Success && res.Error != nil {
		return fmt.Sprintf("error (%s): %s", res.Error.Code, res.Error.Message)
	}
	switch data := res.Data.(type) {
	case string:
		return data
	default:
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Sprintf("%v", data)
		}
		return string(b)
	}
}
