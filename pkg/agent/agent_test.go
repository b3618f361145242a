// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crucible-labs/crucible/pkg/coerce"
	"github.com/crucible-labs/crucible/pkg/tools"
	"github.com/crucible-labs/crucible/pkg/types"
)

// mockProvider plays back canned responses in order.
type mockProvider struct {
	mu        sync.Mutex
	responses []*types.LLMResponse
	errs      []error
	calls     int
	seen      [][]types.Message
}

func (m *mockProvider) Chat(ctx context.Context, messages []types.Message, toolset []tools.Tool) (*types.LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, messages)
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return &types.LLMResponse{Content: "{}", StopReason: "end_turn"}, nil
}

func (m *mockProvider) Name() string  { return "mock" }
func (m *mockProvider) Model() string { return "mock-model" }

func textResponse(content string) *types.LLMResponse {
	return &types.LLMResponse{
		Content:    content,
		StopReason: "end_turn",
		Usage:      types.Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30, CostUSD: 0.001},
	}
}

const researchJSON = `{
	"competitors": [{"name": "Acme", "description": "incumbent", "strengths": ["brand"], "weaknesses": ["slow"]}],
	"market_size": {"tam": 5000000000, "sam": 500000000, "som": 25000000, "growth_rate": 12.5, "source": "industry report"},
	"customer_pain_points": ["manual workflows", "high cost", "poor visibility"],
	"unique_value_proposition": "Automates validation end to end",
	"market_trends": ["AI adoption", "remote work"],
	"confidence_score": 0.8,
	"sources": ["report 2026"]
}`

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Logger = zaptest.NewLogger(t)
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.Retry.MaxDelay = 2 * time.Millisecond
	return cfg
}

func TestRunResearchStage(t *testing.T) {
	provider := &mockProvider{responses: []*types.LLMResponse{textResponse(researchJSON)}}
	a := New(provider, testConfig(t))

	res, err := a.Run(context.Background(), ResearchStage(), Input{
		BusinessIdea: "AI-powered business validation",
		TargetMarket: "startup founders",
		Industry:     "saas",
	})
	require.NoError(t, err)

	assert.Equal(t, coerce.OutcomeExtracted, res.Outcome)
	assert.Equal(t, 1, res.Turns)
	assert.Equal(t, 0, res.ToolExecutions)
	assert.Equal(t, "Automates validation end to end", res.Output["unique_value_proposition"])
	assert.Equal(t, 30, res.Usage.TotalTokens)

	// System prompt and user prompt both delivered
	require.Len(t, provider.seen, 1)
	require.Len(t, provider.seen[0], 2)
	assert.Equal(t, "system", provider.seen[0][0].Role)
	assert.Contains(t, provider.seen[0][1].Content, "AI-powered business validation")
	assert.Contains(t, provider.seen[0][1].Content, "startup founders")
}

func TestRunExperimentStageWithTools(t *testing.T) {
	toolCall := &types.LLMResponse{
		StopReason: "tool_use",
		ToolCalls: []types.ToolCall{
			{ID: "call_1", Name: "conversion_rate_estimator", Input: map[string]interface{}{"query": "saas free trial"}},
		},
		Usage: types.Usage{InputTokens: 5, OutputTokens: 5, TotalTokens: 10, CostUSD: 0.0005},
	}
	final := textResponse(`{
		"landing_pages": [], "ab_tests": [], "copy_variations": [], "target_audiences": [],
		"predicted_conversion_rate": 3.2, "confidence_score": 0.7, "rationale": "benchmark-driven"
	}`)
	provider := &mockProvider{responses: []*types.LLMResponse{toolCall, final}}
	a := New(provider, testConfig(t))

	research := map[string]interface{}{
		"unique_value_proposition": "Automates validation",
		"customer_pain_points":     []interface{}{"p1", "p2", "p3", "p4"},
		"market_trends":            []interface{}{"t1"},
		"competitors":              []interface{}{map[string]interface{}{"name": "Acme"}},
	}

	res, err := a.Run(context.Background(), ExperimentStage(), Input{
		BusinessIdea: "validation saas",
		Research:     research,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Turns)
	assert.Equal(t, 1, res.ToolExecutions)
	assert.Equal(t, 3.2, res.Output["predicted_conversion_rate"])
	assert.Equal(t, 40, res.Usage.TotalTokens)

	// Second call must include the assistant tool call and the tool result
	require.Len(t, provider.seen, 2)
	second := provider.seen[1]
	require.Len(t, second, 4)
	assert.Equal(t, "assistant", second[2].Role)
	assert.Equal(t, "tool", second[3].Role)
	assert.Equal(t, "call_1", second[3].ToolUseID)
	assert.Contains(t, second[3].Content, "Estimated conversion rate")

	// Prompt condensation keeps only the top 3 pain points
	assert.Contains(t, provider.seen[0][1].Content, "p1, p2, p3")
	assert.NotContains(t, provider.seen[0][1].Content, "p4")
}

func TestRunTurnLimitExceeded(t *testing.T) {
	loop := &types.LLMResponse{
		StopReason: "tool_use",
		ToolCalls: []types.ToolCall{
			{ID: "c", Name: "cac_estimator", Input: map[string]interface{}{"query": "saas"}},
		},
	}
	provider := &mockProvider{responses: []*types.LLMResponse{loop, loop, loop, loop, loop}}
	cfg := testConfig(t)
	cfg.MaxTurns = 3
	a := New(provider, cfg)

	_, err := a.Run(context.Background(), MarketingStage(), Input{BusinessIdea: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "turn limit")
}

func TestRunToolLimitExceeded(t *testing.T) {
	calls := make([]types.ToolCall, 4)
	for i := range calls {
		calls[i] = types.ToolCall{ID: "c", Name: "roi_calculator", Input: map[string]interface{}{"query": "email"}}
	}
	provider := &mockProvider{responses: []*types.LLMResponse{{StopReason: "tool_use", ToolCalls: calls}}}
	cfg := testConfig(t)
	cfg.MaxToolExecutions = 2
	a := New(provider, cfg)

	_, err := a.Run(context.Background(), MarketingStage(), Input{BusinessIdea: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool execution limit")
}

func TestChatRetrySucceedsAfterFailures(t *testing.T) {
	provider := &mockProvider{
		errs:      []error{errors.New("transient"), errors.New("transient")},
		responses: []*types.LLMResponse{nil, nil, textResponse(researchJSON)},
	}
	a := New(provider, testConfig(t))

	res, err := a.Run(context.Background(), ResearchStage(), Input{BusinessIdea: "x"})
	require.NoError(t, err)
	assert.Equal(t, 3, provider.calls)
	assert.Equal(t, coerce.OutcomeExtracted, res.Outcome)
}

func TestChatRetryExhausted(t *testing.T) {
	provider := &mockProvider{
		errs: []error{errors.New("down"), errors.New("down"), errors.New("down"), errors.New("down")},
	}
	cfg := testConfig(t)
	cfg.Retry.MaxRetries = 3
	a := New(provider, cfg)

	_, err := a.Run(context.Background(), ResearchStage(), Input{BusinessIdea: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 4 attempts")
}

func TestDegradedOutputStillConforms(t *testing.T) {
	// Model returns prose, repair call also fails to produce JSON.
	provider := &mockProvider{responses: []*types.LLMResponse{
		textResponse("The market looks promising but I cannot structure it."),
		textResponse("Still prose."),
	}}
	a := New(provider, testConfig(t))

	res, err := a.Run(context.Background(), ResearchStage(), Input{BusinessIdea: "x"})
	require.NoError(t, err)
	assert.Equal(t, coerce.OutcomeDegraded, res.Outcome)
	assert.Equal(t, 0.1, res.Output["confidence_score"])
	require.NoError(t, coerce.Validate(res.Output, ResearchSchema()))
}

func TestStageLookup(t *testing.T) {
	for _, name := range types.Stages() {
		def, err := Stage(name)
		require.NoError(t, err)
		assert.Equal(t, name, def.Name)
		assert.NotNil(t, def.OutputSchema)
	}
	_, err := Stage("bogus")
	assert.Error(t, err)
}

func TestMarketingPromptCondensation(t *testing.T) {
	def := MarketingStage()
	prompt := def.BuildPrompt(Input{
		BusinessIdea: "validation platform",
		Research: map[string]interface{}{
			"unique_value_proposition": "one-stop validation",
			"customer_pain_points":     []interface{}{"a", "b"},
		},
		Experiments: map[string]interface{}{
			"landing_pages": []interface{}{
				map[string]interface{}{"headline": "H1"},
				map[string]interface{}{"headline": "H2"},
				map[string]interface{}{"headline": "H3"},
			},
			"target_audiences":          []interface{}{map[string]interface{}{"segment_name": "founders"}},
			"predicted_conversion_rate": 2.5,
		},
	})

	assert.Contains(t, prompt, "H1, H2")
	assert.NotContains(t, prompt, "H3")
	assert.Contains(t, prompt, "founders")
	assert.Contains(t, prompt, "2.5%")
	assert.Contains(t, prompt, "one-stop validation")
}

func TestTokenBounds(t *testing.T) {
	short := "hello world"
	assert.Equal(t, short, TruncateTokens(short, 100))
	assert.Greater(t, CountTokens(short), 0)

	long := ""
	for i := 0; i < 1000; i++ {
		long += "market research findings "
	}
	truncated := TruncateTokens(long, 50)
	assert.Less(t, CountTokens(truncated), CountTokens(long))
}
