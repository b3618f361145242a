// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package types defines shared types used across the validation pipeline.
package types

import (
	"context"
	"time"

	"github.com/crucible-labs/crucible/pkg/tools"
)

// Message represents a single message in a conversation.
type Message struct {
	// Role of the message sender: "user", "assistant", "system", or "tool"
	Role string `json:"role"`

	// Content is the text content of the message
	Content string `json:"content"`

	// ToolCalls contains any tool invocations requested in this message
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolUseID links a tool result back to its originating call
	ToolUseID string `json:"tool_use_id,omitempty"`

	// ToolResult contains serialized tool output for "tool" role messages
	ToolResult string `json:"tool_result,omitempty"`

	// Timestamp when the message was created
	Timestamp time.Time `json:"timestamp"`
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	// ID uniquely identifies this tool call
	ID string `json:"id"`

	// Name of the tool to invoke
	Name string `json:"name"`

	// Input parameters for the tool
	Input map[string]interface{} `json:"input"`
}

// Usage tracks token consumption and cost for an LLM call.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Add accumulates another usage record into this one.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
	u.CostUSD += other.CostUSD
}

// LLMResponse is the provider-agnostic result of a chat completion.
type LLMResponse struct {
	// Content is the text portion of the response
	Content string `json:"content"`

	// ToolCalls contains tool invocations the model requested, if any
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// StopReason indicates why generation stopped ("end_turn", "tool_use", "max_tokens")
	StopReason string `json:"stop_reason"`

	// Usage reports tokens consumed by this call
	Usage Usage `json:"usage"`
}

// LLMProvider abstracts a chat completion backend.
type LLMProvider interface {
	// Chat sends a conversation to the model and returns its response.
	// Tools, when non-empty, are offered to the model for invocation.
	Chat(ctx context.Context, messages []Message, toolset []tools.Tool) (*LLMResponse, error)

	// Name returns the provider name, e.g. "anthropic"
	Name() string

	// Model returns the model identifier in use
	Model() string
}

// Stage identifies a step of the validation pipeline.
type Stage string

const (
	StageResearch   Stage = "research"
	StageExperiment Stage = "experiment"
	StageMarketing  Stage = "marketing"
)

// Stages lists the pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{StageResearch, StageExperiment, StageMarketing}
}

// Next returns the stage that follows s, or "" for the last stage.
func (s Stage) Next() Stage {
	switch s {
	case StageResearch:
		return StageExperiment
	case StageExperiment:
		return StageMarketing
	default:
		return ""
	}
}

// ProgressEvent reports pipeline progress to registered callbacks.
type ProgressEvent struct {
	ValidationID string    `json:"validation_id"`
	Stage        Stage     `json:"stage"`
	Status       string    `json:"status"`
	Progress     int       `json:"progress"`
	Message      string    `json:"message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ProgressCallback receives progress events as pipeline stages advance.
type ProgressCallback func(event ProgressEvent)
