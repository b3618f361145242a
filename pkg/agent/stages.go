// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package agent

import (
	"fmt"
	"strings"

	"github.com/crucible-labs/crucible/pkg/tools"
	"github.com/crucible-labs/crucible/pkg/types"
)

// Input carries a validation request plus outputs of completed stages into
// a stage run.
type Input struct {
	BusinessIdea string
	TargetMarket string
	Industry     string

	// Research holds the research stage output, set for later stages
	Research map[string]interface{}

	// Experiments holds the experiment stage output, set for the marketing stage
	Experiments map[string]interface{}
}

// StageDefinition binds a pipeline stage to its prompt, toolset, and
// output contract.
type StageDefinition struct {
	Name         types.Stage
	SystemPrompt string
	Tools        []tools.Tool
	OutputSchema *tools.JSONSchema
	BuildPrompt  func(Input) string
}

// Stage returns the definition for the named pipeline stage.
func Stage(name types.Stage) (*StageDefinition, error) {
	switch name {
	case types.StageResearch:
		return ResearchStage(), nil
	case types.StageExperiment:
		return ExperimentStage(), nil
	case types.StageMarketing:
		return MarketingStage(), nil
	default:
		return nil, fmt.Errorf("unknown stage %q", name)
	}
}

// ResearchStage runs tool-less: the model reasons from its own knowledge
// and the coercer enforces the output contract.
func ResearchStage() *StageDefinition {
	return &StageDefinition{
		Name: types.StageResearch,
		SystemPrompt: `You are a market research expert specializing in business validation.

Your goal is to provide comprehensive market research for business ideas. You must:

1. Identify and analyze top 5 competitors: company name, description, strengths, weaknesses, market share and funding information if available.
2. Estimate market size: TAM, SAM, and SOM in USD, annual growth rate percentage, and cite the source of your market data.
3. Identify 5-7 key customer pain points: specific problems customers face and why existing solutions fall short.
4. Analyze 5-7 current market trends: emerging opportunities, shifts in customer behavior, technology or regulatory changes.
5. Provide a unique value proposition: one clear sentence on how this idea uniquely solves customer problems.

Be realistic in your assessments. Do not overestimate market potential. Track all sources used.
Respond with a single JSON object containing: competitors, market_size, customer_pain_points, unique_value_proposition, market_trends, confidence_score, sources.`,
		OutputSchema: ResearchSchema(),
		BuildPrompt: func(in Input) string {
			var b strings.Builder
			fmt.Fprintf(&b, "Conduct market research for the following business idea: %s\n", in.BusinessIdea)
			if in.TargetMarket != "" {
				fmt.Fprintf(&b, "\nTarget Market: %s", in.TargetMarket)
			}
			if in.Industry != "" {
				fmt.Fprintf(&b, "\nIndustry: %s", in.Industry)
			}
			b.WriteString("\n\nProvide comprehensive, realistic analysis backed by data.")
			return b.String()
		},
	}
}

// ExperimentStage designs landing pages, A/B tests, copy variations, and
// audience segments from the research output.
func ExperimentStage() *StageDefinition {
	return &StageDefinition{
		Name: types.StageExperiment,
		SystemPrompt: `You are an expert conversion rate optimizer and experimental marketer.

Your goal is to design comprehensive experiments for validating business ideas. You must:

1. Create 3-4 landing page variations, each with unique headline, value prop, and design approach.
2. Design 3-5 A/B tests with clear hypotheses, specific metrics, realistic sample sizes, and expected improvement ranges.
3. Generate 4-6 copy variations with different tones, focused on different pain points and benefits.
4. Define 3-4 target audience segments with demographics, psychographics, pain points, and channel recommendations.
5. Predict overall conversion rates based on industry benchmarks, adjusted for value proposition strength.

Use the conversion_rate_estimator and audience_size_estimator tools to ground your predictions.
Focus on diverse, testable variations that will provide clear validation signals.
Respond with a single JSON object containing: landing_pages, ab_tests, copy_variations, target_audiences, predicted_conversion_rate, confidence_score, rationale.`,
		Tools:        tools.ExperimentTools(),
		OutputSchema: ExperimentSchema(),
		BuildPrompt: func(in Input) string {
			var b strings.Builder
			fmt.Fprintf(&b, "Design comprehensive experiments for: %s\n", in.BusinessIdea)

			b.WriteString("\nKey Market Insights:")
			fmt.Fprintf(&b, "\n- Value Proposition: %s", stringField(in.Research, "unique_value_proposition"))
			fmt.Fprintf(&b, "\n- Top Customer Pain Points: %s", joinTop(stringSlice(in.Research, "customer_pain_points"), 3))
			fmt.Fprintf(&b, "\n- Key Market Trends: %s", joinTop(stringSlice(in.Research, "market_trends"), 3))
			fmt.Fprintf(&b, "\n- Main Competitors: %s", joinTop(competitorNames(in.Research), 3))

			if in.TargetMarket != "" {
				fmt.Fprintf(&b, "\nTarget Market: %s", in.TargetMarket)
			}
			if in.Industry != "" {
				fmt.Fprintf(&b, "\nIndustry: %s", in.Industry)
			}

			b.WriteString(`

Create diverse variations that test different value propositions, messaging angles, and audience segments.
Design experiments that will provide clear validation signals within 2-4 weeks.
Base all predictions on realistic industry benchmarks.`)
			return TruncateTokens(b.String(), maxSectionTokens)
		},
	}
}

// MarketingStage plans campaigns from the research and experiment outputs.
func MarketingStage() *StageDefinition {
	return &StageDefinition{
		Name: types.StageMarketing,
		SystemPrompt: `You are a marketing strategy expert and growth hacker.

Your goal is to create comprehensive marketing campaigns based on market research and experiment results. You must:

1. Design 4-6 ad campaigns across platforms with specific targeting, messaging, budget allocation, and expected metrics.
2. Create a content marketing strategy: pillars aligned with customer pain points, a first-month calendar, distribution plan.
3. Recommend 5-7 marketing channels with priority ranking, expected reach and cost, and ROI projections.
4. Allocate budget strategically with a total monthly recommendation and percentage split by channel.
5. Project results: expected monthly leads, customer acquisition cost, and overall ROI percentage.

Use the roi_calculator, budget_optimizer, and cac_estimator tools to ground your projections.
Focus on channels and strategies that can show results within 30-60 days, with realistic startup budgets.
Respond with a single JSON object containing: ad_campaigns, content_strategy, channel_recommendations, total_monthly_budget, budget_allocation, expected_monthly_leads, expected_cac, expected_roi, confidence_score, rationale.`,
		Tools:        tools.MarketingTools(),
		OutputSchema: MarketingSchema(),
		BuildPrompt: func(in Input) string {
			var b strings.Builder
			fmt.Fprintf(&b, "Create a marketing plan for: %s\n", in.BusinessIdea)

			b.WriteString("\nMarket Research Insights:")
			fmt.Fprintf(&b, "\n- Value Proposition: %s", stringField(in.Research, "unique_value_proposition"))
			fmt.Fprintf(&b, "\n- Top Customer Pain Points: %s", joinTop(stringSlice(in.Research, "customer_pain_points"), 3))
			fmt.Fprintf(&b, "\n- Key Market Trends: %s", joinTop(stringSlice(in.Research, "market_trends"), 3))

			b.WriteString("\n\nExperiment Insights:")
			fmt.Fprintf(&b, "\n- Top Headlines: %s", joinTop(landingPageHeadlines(in.Experiments), 2))
			fmt.Fprintf(&b, "\n- Top Audience Segments: %s", joinTop(audienceSegments(in.Experiments), 2))
			fmt.Fprintf(&b, "\n- Predicted Conversion Rate: %s", numberField(in.Experiments, "predicted_conversion_rate"))

			if in.TargetMarket != "" {
				fmt.Fprintf(&b, "\nTarget Market: %s", in.TargetMarket)
			}
			if in.Industry != "" {
				fmt.Fprintf(&b, "\nIndustry: %s", in.Industry)
			}

			b.WriteString(`

Be specific, actionable, and data-driven in all recommendations.
Base projections on industry benchmarks and the experiment results above.`)
			return TruncateTokens(b.String(), maxSectionTokens)
		},
	}
}

const notSpecified = "Not specified"

func stringField(doc map[string]interface{}, key string) string {
	if doc == nil {
		return notSpecified
	}
	if s, ok := doc[key].(string); ok && s != "" {
		return s
	}
	return notSpecified
}

func numberField(doc map[string]interface{}, key string) string {
	if doc == nil {
		return notSpecified
	}
	if n, ok := doc[key].(float64); ok {
		return fmt.Sprintf("%.1f%%", n)
	}
	return notSpecified
}

func stringSlice(doc map[string]interface{}, key string) []string {
	if doc == nil {
		return nil
	}
	raw, ok := doc[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func competitorNames(doc map[string]interface{}) []string {
	return objectField(doc, "competitors", "name")
}

func landingPageHeadlines(doc map[string]interface{}) []string {
	return objectField(doc, "landing_pages", "headline")
}

func audienceSegments(doc map[string]interface{}) []string {
	return objectField(doc, "target_audiences", "segment_name")
}

// objectField extracts field from each object in the named array.
func objectField(doc map[string]interface{}, key, field string) []string {
	if doc == nil {
		return nil
	}
	raw, ok := doc[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if obj, ok := v.(map[string]interface{}); ok {
			if s, ok := obj[field].(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// joinTop joins at most n entries with commas, or "Not specified" when empty.
func joinTop(items []string, n int) string {
	if len(items) == 0 {
		return notSpecified
	}
	if len(items) > n {
		items = items[:n]
	}
	return strings.Join(items, ", ")
}
