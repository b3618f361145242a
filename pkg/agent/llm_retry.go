// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crucible-labs/crucible/pkg/tools"
	"github.com/crucible-labs/crucible/pkg/types"
)

// RetryConfig controls exponential backoff for failed LLM calls.
type RetryConfig struct {
	Enabled      bool
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryConfig returns the standard LLM retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Enabled:      true,
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
	}
}

// chatWithRetry wraps LLM Chat calls with exponential backoff.
func (a *Agent) chatWithRetry(ctx context.Context, messages []types.Message, toolset []tools.Tool) (*types.LLMResponse, error) {
	if !a.config.Retry.Enabled || a.config.Retry.MaxRetries == 0 {
		return a.llm.Chat(ctx, messages, toolset)
	}

	var lastErr error
	delay := a.config.Retry.InitialDelay

	for attempt := 0; attempt <= a.config.Retry.MaxRetries; attempt++ {
		response, err := a.llm.Chat(ctx, messages, toolset)
		if err == nil {
			if attempt > 0 {
				a.logger.Info("llm retry succeeded",
					zap.Int("attempt", attempt+1),
				)
			}
			return response, nil
		}

		lastErr = err

		// Never retry a cancelled or timed-out run
		if ctx.Err() != nil {
			return nil, fmt.Errorf("llm call failed (attempt %d/%d): %w",
				attempt+1, a.config.Retry.MaxRetries+1, err)
		}

		if attempt >= a.config.Retry.MaxRetries {
			break
		}

		a.logger.Warn("llm call failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", a.config.Retry.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("llm call failed (attempt %d/%d): %w",
				attempt+1, a.config.Retry.MaxRetries+1, ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * a.config.Retry.Multiplier)
		if delay > a.config.Retry.MaxDelay {
			delay = a.config.Retry.MaxDelay
		}
	}

	a.logger.Error("llm retries exhausted",
		zap.Int("max_retries", a.config.Retry.MaxRetries),
		zap.Error(lastErr),
	)

	return nil, fmt.Errorf("llm call failed after %d attempts: %w",
		a.config.Retry.MaxRetries+1, lastErr)
}
