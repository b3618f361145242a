// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crucible-labs/crucible/pkg/agent"
	"github.com/crucible-labs/crucible/pkg/taskqueue"
	"github.com/crucible-labs/crucible/pkg/tools"
	"github.com/crucible-labs/crucible/pkg/types"
)

const (
	researchJSON = `{
		"competitors": [{"name": "Acme", "description": "incumbent", "strengths": ["brand"], "weaknesses": ["slow"]}],
		"market_size": {"tam": 5000000000, "sam": 500000000, "som": 25000000, "growth_rate": 12.5, "source": "industry report"},
		"customer_pain_points": ["manual menu pricing", "no demand data"],
		"unique_value_proposition": "Data-driven menu pricing",
		"market_trends": ["AI adoption"],
		"confidence_score": 0.8,
		"sources": ["report 2026"]
	}`
	experimentJSON = `{
		"landing_pages": [
			{"variant_id": "A", "headline": "Price smarter", "cta_text": "Try it", "value_proposition": "More margin"},
			{"variant_id": "B", "headline": "Stop guessing", "cta_text": "Start now", "value_proposition": "Data-driven"},
			{"variant_id": "C", "headline": "Menu science", "cta_text": "Sign up", "value_proposition": "Optimized"}
		],
		"ab_tests": [], "copy_variations": [], "target_audiences": [],
		"predicted_conversion_rate": 2.6, "confidence_score": 0.7, "rationale": "benchmarks"
	}`
	marketingJSON = `{
		"ad_campaigns": [
			{"campaign_name": "Search", "platform": "Google Ads", "campaign_type": "search", "key_message": "m1"},
			{"campaign_name": "Social", "platform": "Facebook", "campaign_type": "social", "key_message": "m2"},
			{"campaign_name": "Pro", "platform": "LinkedIn", "campaign_type": "social", "key_message": "m3"},
			{"campaign_name": "Video", "platform": "YouTube", "campaign_type": "video", "key_message": "m4"}
		],
		"content_strategy": {"content_pillars": ["pricing"], "publishing_frequency": "2x per week"},
		"channel_recommendations": [{"channel": "seo", "priority": "high", "reasoning": "organic"}],
		"total_monthly_budget": 10000, "budget_allocation": {"Google Ads": 30},
		"expected_monthly_leads": 250, "expected_cac": 395, "expected_roi": 140,
		"confidence_score": 0.75, "rationale": "startup budget"
	}`
)

// stageProvider plays back one canned response per call.
type stageProvider struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (p *stageProvider) Chat(ctx context.Context, messages []types.Message, toolset []tools.Tool) (*types.LLMResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	content := "{}"
	if i < len(p.responses) {
		content = p.responses[i]
	}
	return &types.LLMResponse{
		Content:    content,
		StopReason: "end_turn",
		Usage:      types.Usage{InputTokens: 100, OutputTokens: 200, TotalTokens: 300, CostUSD: 0.003},
	}, nil
}

func (p *stageProvider) Name() string  { return "mock" }
func (p *stageProvider) Model() string { return "mock-model" }

// recordingStore captures every transition the orchestrator persists.
type recordingStore struct {
	mu         sync.Mutex
	processing []types.Stage
	saved      map[types.Stage]map[string]interface{}
	raws       map[types.Stage]string
	completed  bool
	totalCost  float64
	failed     bool
	failStage  types.Stage
	failCause  string
	cancelled  bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		saved: make(map[types.Stage]map[string]interface{}),
		raws:  make(map[types.Stage]string),
	}
}

func (s *recordingStore) SetProcessing(ctx context.Context, jobID string, stage types.Stage, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = append(s.processing, stage)
	return nil
}

func (s *recordingStore) SaveStageOutput(ctx context.Context, jobID string, stage types.Stage, output map[string]interface{}, rawOutput string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[stage] = output
	s.raws[stage] = rawOutput
	return nil
}

func (s *recordingStore) SetCompleted(ctx context.Context, jobID string, totalCost float64, elapsed time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = true
	s.totalCost = totalCost
	return nil
}

func (s *recordingStore) SetFailed(ctx context.Context, jobID string, stage types.Stage, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = true
	s.failStage = stage
	s.failCause = cause
	return nil
}

func (s *recordingStore) SetCancelled(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
	return nil
}

func (s *recordingStore) snapshot() recordingStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return recordingStore{
		processing: append([]types.Stage(nil), s.processing...),
		completed:  s.completed,
		totalCost:  s.totalCost,
		failed:     s.failed,
		failStage:  s.failStage,
		failCause:  s.failCause,
		cancelled:  s.cancelled,
	}
}

func newTestOrchestrator(t *testing.T, provider types.LLMProvider, store Store) *Orchestrator {
	agentCfg := agent.DefaultConfig()
	agentCfg.Logger = zaptest.NewLogger(t)
	agentCfg.Retry.Enabled = false

	queue := taskqueue.NewMemoryQueue(taskqueue.Config{
		Workers: 2,
		Logger:  zaptest.NewLogger(t),
	})
	t.Cleanup(func() { _ = queue.Close() })

	return NewOrchestrator(
		agent.New(provider, agentCfg),
		queue,
		store,
		Config{MaxAttempts: 3, RetryDelay: 10 * time.Millisecond, StageTimeout: 5 * time.Second},
		zaptest.NewLogger(t),
	)
}

func TestPipelineCompletes(t *testing.T) {
	provider := &stageProvider{responses: []string{researchJSON, experimentJSON, marketingJSON}}
	store := newRecordingStore()
	o := newTestOrchestrator(t, provider, store)

	var events []types.ProgressEvent
	var eventsMu sync.Mutex
	o.SetProgressCallback(func(e types.ProgressEvent) {
		eventsMu.Lock()
		events = append(events, e)
		eventsMu.Unlock()
	})

	require.NoError(t, o.Start(context.Background(), "job-1", Request{
		BusinessIdea: "AI app that helps restaurants price menus",
		Industry:     "Restaurant Tech",
	}))

	require.Eventually(t, func() bool { return store.snapshot().completed }, 5*time.Second, 10*time.Millisecond)

	snap := store.snapshot()
	assert.Equal(t, []types.Stage{types.StageResearch, types.StageExperiment, types.StageMarketing}, snap.processing)
	assert.InDelta(t, 0.009, snap.totalCost, 1e-9)

	store.mu.Lock()
	research := store.saved[types.StageResearch]
	experiments := store.saved[types.StageExperiment]
	campaigns := store.saved[types.StageMarketing]
	store.mu.Unlock()

	assert.NotEmpty(t, research["competitors"])
	assert.Len(t, experiments["landing_pages"], 3)
	assert.Len(t, campaigns["ad_campaigns"], 4)
	assert.Equal(t, float64(140), campaigns["expected_roi"])

	require.Eventually(t, func() bool {
		eventsMu.Lock()
		defer eventsMu.Unlock()
		return len(events) > 0 && events[len(events)-1].Status == "completed"
	}, time.Second, 5*time.Millisecond)

	// Once persisted, the run leaves the in-memory table and status reads
	// resolve from the stored record instead.
	require.Eventually(t, func() bool {
		return o.Status("job-1").Status == StatusUnknown
	}, time.Second, 5*time.Millisecond)
}

func TestPipelineFailsAfterRetryExhaustion(t *testing.T) {
	boom := errors.New("model unavailable")
	provider := &stageProvider{errs: []error{boom, boom, boom, boom, boom}}
	store := newRecordingStore()
	o := newTestOrchestrator(t, provider, store)

	require.NoError(t, o.Start(context.Background(), "job-2", Request{BusinessIdea: "doomed idea"}))

	require.Eventually(t, func() bool { return store.snapshot().failed }, 5*time.Second, 10*time.Millisecond)

	snap := store.snapshot()
	assert.Equal(t, types.StageResearch, snap.failStage)
	assert.Contains(t, snap.failCause, "model unavailable")

	// Exactly the attempt budget, never one more, and no later stage submitted
	provider.mu.Lock()
	calls := provider.calls
	provider.mu.Unlock()
	assert.Equal(t, 3, calls)
	assert.Equal(t, []types.Stage{types.StageResearch}, snap.processing)

	// Failed runs are evicted after the failure is persisted
	require.Eventually(t, func() bool {
		return o.Status("job-2").Status == StatusUnknown
	}, time.Second, 5*time.Millisecond)
}

func TestPipelineCancellation(t *testing.T) {
	release := make(chan struct{})
	provider := &blockingProvider{release: release}
	store := newRecordingStore()
	o := newTestOrchestrator(t, provider, store)

	require.NoError(t, o.Start(context.Background(), "job-3", Request{BusinessIdea: "slow idea"}))

	require.Eventually(t, func() bool {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		return provider.started
	}, 2*time.Second, 5*time.Millisecond)

	assert.True(t, o.Cancel(context.Background(), "job-3"))
	close(release)

	assert.True(t, store.snapshot().cancelled)

	// The cancelled run is evicted, so its status resolves from the record
	assert.Equal(t, StatusUnknown, o.Status("job-3").Status)

	// No later stage ever submits
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []types.Stage{types.StageResearch}, store.snapshot().processing)

	// Cancelling a cancelled or unknown job reports false
	assert.False(t, o.Cancel(context.Background(), "job-3"))
	assert.False(t, o.Cancel(context.Background(), "nope"))
}

// gateQueue delegates to a real queue but parks the Nth Enqueue until
// released, holding a stage handoff open mid-flight.
type gateQueue struct {
	inner    taskqueue.Queue
	gateOn   string
	inflight chan struct{}
	proceed  chan struct{}
}

func (q *gateQueue) Enqueue(kind string, fn taskqueue.Func, opts taskqueue.Options) (*taskqueue.Handle, error) {
	if kind == q.gateOn {
		close(q.inflight)
		<-q.proceed
	}
	return q.inner.Enqueue(kind, fn, opts)
}

func (q *gateQueue) Close() error { return q.inner.Close() }

func TestCancelDuringStageHandoff(t *testing.T) {
	provider := &stageProvider{responses: []string{researchJSON, experimentJSON, marketingJSON}}
	store := newRecordingStore()

	agentCfg := agent.DefaultConfig()
	agentCfg.Logger = zaptest.NewLogger(t)
	agentCfg.Retry.Enabled = false

	inner := taskqueue.NewMemoryQueue(taskqueue.Config{
		Workers: 2,
		Logger:  zaptest.NewLogger(t),
	})
	t.Cleanup(func() { _ = inner.Close() })
	queue := &gateQueue{
		inner:    inner,
		gateOn:   "validation:" + string(types.StageExperiment),
		inflight: make(chan struct{}),
		proceed:  make(chan struct{}),
	}

	o := NewOrchestrator(
		agent.New(provider, agentCfg),
		queue,
		store,
		Config{MaxAttempts: 3, RetryDelay: 10 * time.Millisecond, StageTimeout: 5 * time.Second},
		zaptest.NewLogger(t),
	)

	require.NoError(t, o.Start(context.Background(), "job-6", Request{BusinessIdea: "raced idea"}))

	// Research finishes and the experiment submission is parked in the gate.
	select {
	case <-queue.inflight:
	case <-time.After(5 * time.Second):
		t.Fatal("experiment handoff never started")
	}

	// Cancel lands while the next stage is between the terminal check and
	// its enqueue, then the handoff is released.
	assert.True(t, o.Cancel(context.Background(), "job-6"))
	close(queue.proceed)

	// The cancellation must stand and the experiment stage never runs.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, StatusUnknown, o.Status("job-6").Status)

	snap := store.snapshot()
	assert.True(t, snap.cancelled)
	assert.False(t, snap.completed)
	assert.Equal(t, []types.Stage{types.StageResearch}, snap.processing)

	provider.mu.Lock()
	calls := provider.calls
	provider.mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestStartRejectsDuplicateJob(t *testing.T) {
	// A provider that parks the first stage keeps the job tracked for the
	// duration of the duplicate submission.
	release := make(chan struct{})
	provider := &blockingProvider{release: release}
	store := newRecordingStore()
	o := newTestOrchestrator(t, provider, store)
	t.Cleanup(func() { close(release) })

	require.NoError(t, o.Start(context.Background(), "job-4", Request{BusinessIdea: "idea"}))
	err := o.Start(context.Background(), "job-4", Request{BusinessIdea: "idea"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already submitted")
}

func TestStatusUnknownJob(t *testing.T) {
	provider := &stageProvider{}
	o := newTestOrchestrator(t, provider, newRecordingStore())

	view := o.Status("missing")
	assert.Equal(t, StatusUnknown, view.Status)
	assert.Equal(t, 0, view.Progress)
}

func TestDegradedResearchStillProceeds(t *testing.T) {
	// Research output is garbage twice (direct parse and repair both fail),
	// but the pipeline must push a degraded default downstream, not abort.
	provider := &stageProvider{responses: []string{
		"total garbage, no json",
		"repair also fails",
		experimentJSON,
		marketingJSON,
	}}
	store := newRecordingStore()
	o := newTestOrchestrator(t, provider, store)

	require.NoError(t, o.Start(context.Background(), "job-5", Request{BusinessIdea: "messy idea"}))

	require.Eventually(t, func() bool { return store.snapshot().completed }, 5*time.Second, 10*time.Millisecond)

	store.mu.Lock()
	research := store.saved[types.StageResearch]
	raw := store.raws[types.StageResearch]
	store.mu.Unlock()

	assert.Empty(t, research["competitors"])
	assert.Equal(t, 0.1, research["confidence_score"])
	assert.Contains(t, research["unique_value_proposition"], "Unable to parse")
	assert.Equal(t, "total garbage, no json", raw)
}

func TestMapTaskState(t *testing.T) {
	assert.Equal(t, StatusPending, MapTaskState(taskqueue.StatePending))
	assert.Equal(t, StatusProcessing, MapTaskState(taskqueue.StateStarted))
	assert.Equal(t, StatusProcessing, MapTaskState(taskqueue.StateRetry))
	assert.Equal(t, StatusCompleted, MapTaskState(taskqueue.StateSuccess))
	assert.Equal(t, StatusFailed, MapTaskState(taskqueue.StateFailure))
	assert.Equal(t, StatusCancelled, MapTaskState(taskqueue.StateRevoked))
}

// blockingProvider blocks until released or cancelled.
type blockingProvider struct {
	mu      sync.Mutex
	started bool
	release chan struct{}
}

func (p *blockingProvider) Chat(ctx context.Context, messages []types.Message, toolset []tools.Tool) (*types.LLMResponse, error) {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &types.LLMResponse{Content: "{}", StopReason: "end_turn"}, nil
}

func (p *blockingProvider) Name() string  { return "blocking" }
func (p *blockingProvider) Model() string { return "blocking-model" }
