// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package llm provides provider-neutral plumbing for LLM calls.
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimiterConfig configures the shared LLM rate limiter.
type RateLimiterConfig struct {
	// Enabled turns rate limiting on. When false, Do calls straight through.
	Enabled bool

	// RequestsPerSecond is the sustained request rate across all agents.
	RequestsPerSecond float64

	// BurstCapacity is the maximum burst of requests allowed.
	BurstCapacity int

	// MinDelay is a floor on spacing between requests.
	MinDelay time.Duration

	// MaxRetries is the retry budget for 429 throttling errors.
	MaxRetries int

	// RetryBackoff is the initial backoff for throttle retries, doubling
	// each attempt.
	RetryBackoff time.Duration

	// Logger for throttle events
	Logger *zap.Logger
}

// DefaultRateLimiterConfig returns defaults sized for Anthropic Tier 1
// accounts (50 requests per minute).
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.7,
		BurstCapacity:     3,
		MinDelay:          800 * time.Millisecond,
		MaxRetries:        5,
		RetryBackoff:      2 * time.Second,
		Logger:            zap.NewNop(),
	}
}

// RateLimiter implements token bucket rate limiting for LLM requests with
// automatic retry on provider throttling. Safe for concurrent use.
type RateLimiter struct {
	config RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	lastCall   time.Time

	// request counters
	metricsMu sync.RWMutex
	metrics   RateLimiterMetrics
}

// RateLimiterMetrics tracks limiter activity.
type RateLimiterMetrics struct {
	TotalRequests     int64
	ThrottledRequests int64
	LastThrottleTime  time.Time
}

// NewRateLimiter creates a rate limiter from config. Zero fields fall back
// to defaults.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	def := DefaultRateLimiterConfig()
	if config.Logger == nil {
		config.Logger = def.Logger
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = def.RequestsPerSecond
	}
	if config.BurstCapacity <= 0 {
		config.BurstCapacity = def.BurstCapacity
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = def.RetryBackoff
	}

	return &RateLimiter{
		config:     config,
		tokens:     float64(config.BurstCapacity),
		maxTokens:  float64(config.BurstCapacity),
		refillRate: config.RequestsPerSecond,
		lastRefill: time.Now(),
	}
}

// Do executes call under the rate limit, retrying with exponential backoff
// when the provider throttles.
func (rl *RateLimiter) Do(ctx context.Context, call func(context.Context) (interface{}, error)) (interface{}, error) {
	if !rl.config.Enabled {
		return call(ctx)
	}

	if err := rl.wait(ctx); err != nil {
		return nil, err
	}

	backoff := rl.config.RetryBackoff
	for attempt := 0; attempt <= rl.config.MaxRetries; attempt++ {
		result, err := call(ctx)
		rl.countRequest()

		if err == nil || !IsThrottlingError(err) {
			return result, err
		}

		rl.countThrottle()
		rl.config.Logger.Warn("LLM request throttled, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", rl.config.MaxRetries),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		if attempt < rl.config.MaxRetries {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("LLM request failed after %d attempts due to throttling", rl.config.MaxRetries+1)
}

// wait blocks until a bucket token is available and the minimum inter-call
// delay has elapsed.
func (rl *RateLimiter) wait(ctx context.Context) error {
	for {
		if rl.acquire() {
			break
		}
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if rl.config.MinDelay > 0 {
		rl.mu.Lock()
		since := time.Since(rl.lastCall)
		rl.lastCall = time.Now()
		rl.mu.Unlock()

		if since < rl.config.MinDelay {
			select {
			case <-time.After(rl.config.MinDelay - since):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func (rl *RateLimiter) acquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens = min(rl.maxTokens, rl.tokens+elapsed*rl.refillRate)
	rl.lastRefill = now

	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}

func (rl *RateLimiter) countRequest() {
	rl.metricsMu.Lock()
	rl.metrics.TotalRequests++
	rl.metricsMu.Unlock()
}

func (rl *RateLimiter) countThrottle() {
	rl.metricsMu.Lock()
	rl.metrics.ThrottledRequests++
	rl.metrics.LastThrottleTime = time.Now()
	rl.metricsMu.Unlock()
}

// Metrics returns a snapshot of limiter activity.
func (rl *RateLimiter) Metrics() RateLimiterMetrics {
	rl.metricsMu.RLock()
	defer rl.metricsMu.RUnlock()
	return rl.metrics
}

// IsThrottlingError reports whether err looks like a provider throttle
// (HTTP 429 or equivalent).
func IsThrottlingError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "429") ||
		strings.Contains(s, "TooManyRequests") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "overloaded")
}
