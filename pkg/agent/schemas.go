// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package agent

import "github.com/crucible-labs/crucible/pkg/tools"

// Output schemas for the three validation stages. These are the contracts
// stage output is coerced against before persistence.

// ResearchSchema describes the market research stage output.
func ResearchSchema() *tools.JSONSchema {
	competitor := tools.NewObjectSchema("Competitor analysis", map[string]*tools.JSONSchema{
		"name":         tools.NewStringSchema("Company name"),
		"description":  tools.NewStringSchema("Brief description of the company"),
		"strengths":    tools.NewArraySchema("Key strengths", tools.NewStringSchema("")),
		"weaknesses":   tools.NewArraySchema("Key weaknesses", tools.NewStringSchema("")),
		"market_share": tools.NewNumberSchema("Estimated market share percentage"),
		"funding":      tools.NewStringSchema("Funding information if available"),
	}, []string{"name", "description", "strengths", "weaknesses"})

	marketSize := tools.NewObjectSchema("Market size breakdown", map[string]*tools.JSONSchema{
		"tam":         tools.NewNumberSchema("Total Addressable Market in USD"),
		"sam":         tools.NewNumberSchema("Serviceable Addressable Market in USD"),
		"som":         tools.NewNumberSchema("Serviceable Obtainable Market in USD"),
		"growth_rate": tools.NewNumberSchema("Annual market growth rate percentage"),
		"source":      tools.NewStringSchema("Source of market size data"),
	}, []string{"tam", "sam", "som", "growth_rate", "source"})

	return tools.NewObjectSchema("Market research results", map[string]*tools.JSONSchema{
		"competitors":              tools.NewArraySchema("Top 5 competitors analysis", competitor),
		"market_size":              marketSize,
		"customer_pain_points":     tools.NewArraySchema("Key customer pain points", tools.NewStringSchema("")),
		"unique_value_proposition": tools.NewStringSchema("Unique value proposition"),
		"market_trends":            tools.NewArraySchema("Current market trends", tools.NewStringSchema("")),
		"confidence_score":         tools.NewNumberSchema("Confidence score 0-1"),
		"sources":                  tools.NewArraySchema("Sources used for research", tools.NewStringSchema("")),
	}, []string{
		"competitors", "market_size", "customer_pain_points",
		"unique_value_proposition", "market_trends", "confidence_score", "sources",
	})
}

// ExperimentSchema describes the experiment generation stage output.
func ExperimentSchema() *tools.JSONSchema {
	landingPage := tools.NewObjectSchema("Landing page variation", map[string]*tools.JSONSchema{
		"variant_id":        tools.NewStringSchema("Unique identifier for the variant (e.g., 'A', 'B', 'C')"),
		"headline":          tools.NewStringSchema("Main headline for the landing page"),
		"subheadline":       tools.NewStringSchema("Supporting subheadline"),
		"cta_text":          tools.NewStringSchema("Call-to-action button text"),
		"value_proposition": tools.NewStringSchema("Primary value proposition"),
		"features":          tools.NewArraySchema("Key features to highlight (3-5 items)", tools.NewStringSchema("")),
		"social_proof":      tools.NewStringSchema("Social proof element (testimonial, stat, etc.)"),
		"design_style":      tools.NewStringSchema("Design approach (minimal, bold, professional, etc.)"),
		"color_scheme":      tools.NewStringSchema("Primary color scheme recommendation"),
	}, []string{"variant_id", "headline", "cta_text", "value_proposition"})

	abTest := tools.NewObjectSchema("A/B test configuration", map[string]*tools.JSONSchema{
		"test_name":            tools.NewStringSchema("Name of the A/B test"),
		"hypothesis":           tools.NewStringSchema("Test hypothesis"),
		"control_variant":      tools.NewStringSchema("Control variant identifier"),
		"test_variant":         tools.NewStringSchema("Test variant identifier"),
		"primary_metric":       tools.NewStringSchema("Primary metric to measure"),
		"secondary_metrics":    tools.NewArraySchema("Secondary metrics to track", tools.NewStringSchema("")),
		"minimum_sample_size":  tools.NewIntegerSchema("Minimum sample size per variant"),
		"expected_improvement": tools.NewNumberSchema("Expected improvement percentage"),
	}, []string{"test_name", "hypothesis", "control_variant", "test_variant", "primary_metric"})

	copyVariation := tools.NewObjectSchema("Copy variation", map[string]*tools.JSONSchema{
		"variant_id":       tools.NewStringSchema("Unique identifier for the variant"),
		"tone":             tools.NewStringSchema("Copy tone (professional, casual, urgent, etc.)"),
		"headline":         tools.NewStringSchema("Main headline copy"),
		"body_copy":        tools.NewStringSchema("Main body copy (2-3 sentences)"),
		"cta_copy":         tools.NewStringSchema("Call-to-action copy"),
		"pain_point_focus": tools.NewStringSchema("Primary pain point addressed"),
		"benefit_focus":    tools.NewStringSchema("Primary benefit highlighted"),
	}, []string{"variant_id", "tone", "headline", "body_copy", "cta_copy"})

	targetAudience := tools.NewObjectSchema("Target audience segment", map[string]*tools.JSONSchema{
		"segment_name":       tools.NewStringSchema("Name of the audience segment"),
		"demographics":       tools.NewObjectSchema("Age, gender, income, education, etc.", nil, nil),
		"psychographics":     tools.NewArraySchema("Interests, values, lifestyle", tools.NewStringSchema("")),
		"pain_points":        tools.NewArraySchema("Specific pain points for this segment", tools.NewStringSchema("")),
		"channels":           tools.NewArraySchema("Best channels to reach this audience", tools.NewStringSchema("")),
		"messaging_approach": tools.NewStringSchema("Recommended messaging approach"),
		"estimated_size":     tools.NewIntegerSchema("Estimated audience size"),
	}, []string{"segment_name", "channels", "messaging_approach"})

	return tools.NewObjectSchema("Experiment generation results", map[string]*tools.JSONSchema{
		"landing_pages":             tools.NewArraySchema("3-4 landing page variations", landingPage),
		"ab_tests":                  tools.NewArraySchema("3-5 A/B test configurations", abTest),
		"copy_variations":           tools.NewArraySchema("4-6 copy variations", copyVariation),
		"target_audiences":          tools.NewArraySchema("3-4 target audience segments", targetAudience),
		"predicted_conversion_rate": tools.NewNumberSchema("Overall predicted conversion rate (0-100)"),
		"confidence_score":          tools.NewNumberSchema("Confidence in predictions (0-1)"),
		"rationale":                 tools.NewStringSchema("Brief rationale for experiment designs"),
	}, []string{
		"landing_pages", "ab_tests", "copy_variations", "target_audiences",
		"predicted_conversion_rate", "confidence_score", "rationale",
	})
}

// MarketingSchema describes the marketing campaign stage output.
func MarketingSchema() *tools.JSONSchema {
	adCampaign := tools.NewObjectSchema("Ad campaign", map[string]*tools.JSONSchema{
		"campaign_name":            tools.NewStringSchema("Campaign name"),
		"platform":                 tools.NewStringSchema("Advertising platform (Google Ads, Facebook, LinkedIn, etc.)"),
		"campaign_type":            tools.NewStringSchema("Campaign type (search, display, video, social)"),
		"target_audience":          tools.NewStringSchema("Target audience for this campaign"),
		"budget_allocation":        tools.NewNumberSchema("Budget allocation percentage for this campaign"),
		"key_message":              tools.NewStringSchema("Primary message/hook"),
		"ad_copy":                  tools.NewStringSchema("Main ad copy (2-3 sentences)"),
		"cta":                      tools.NewStringSchema("Call-to-action"),
		"expected_cpc":             tools.NewNumberSchema("Expected cost per click in USD"),
		"expected_ctr":             tools.NewNumberSchema("Expected click-through rate percentage"),
		"expected_conversion_rate": tools.NewNumberSchema("Expected conversion rate percentage"),
	}, []string{"campaign_name", "platform", "campaign_type", "key_message"})

	contentPiece := tools.NewObjectSchema("Content piece", map[string]*tools.JSONSchema{
		"content_type":          tools.NewStringSchema("Type of content (blog, video, infographic, etc.)"),
		"title":                 tools.NewStringSchema("Content title"),
		"topic":                 tools.NewStringSchema("Main topic/theme"),
		"target_keywords":       tools.NewArraySchema("Target keywords for SEO", tools.NewStringSchema("")),
		"content_goal":          tools.NewStringSchema("Primary goal (awareness, education, conversion)"),
		"distribution_channels": tools.NewArraySchema("Where to distribute this content", tools.NewStringSchema("")),
	}, []string{"content_type", "title", "topic"})

	contentStrategy := tools.NewObjectSchema("Content marketing strategy", map[string]*tools.JSONSchema{
		"content_pillars":      tools.NewArraySchema("Main content themes/pillars", tools.NewStringSchema("")),
		"content_calendar":     tools.NewArraySchema("First month's content calendar", contentPiece),
		"publishing_frequency": tools.NewStringSchema("How often to publish (e.g., 2x per week)"),
		"primary_formats":      tools.NewArraySchema("Main content formats to focus on", tools.NewStringSchema("")),
	}, []string{"content_pillars", "publishing_frequency"})

	channelRec := tools.NewObjectSchema("Marketing channel recommendation", map[string]*tools.JSONSchema{
		"channel":         tools.NewStringSchema("Marketing channel name"),
		"priority":        tools.NewStringSchema("Priority level (high, medium, low)"),
		"reasoning":       tools.NewStringSchema("Why this channel is recommended"),
		"estimated_reach": tools.NewIntegerSchema("Estimated monthly reach"),
		"estimated_cost":  tools.NewNumberSchema("Estimated monthly cost in USD"),
		"expected_roi":    tools.NewNumberSchema("Expected ROI percentage"),
	}, []string{"channel", "priority", "reasoning"})

	return tools.NewObjectSchema("Marketing campaign results", map[string]*tools.JSONSchema{
		"ad_campaigns":            tools.NewArraySchema("4-6 ad campaign configurations", adCampaign),
		"content_strategy":        contentStrategy,
		"channel_recommendations": tools.NewArraySchema("5-7 marketing channel recommendations", channelRec),
		"total_monthly_budget":    tools.NewNumberSchema("Recommended total monthly budget in USD"),
		"budget_allocation":       tools.NewObjectSchema("Budget allocation by channel/category", nil, nil),
		"expected_monthly_leads":  tools.NewIntegerSchema("Expected monthly leads"),
		"expected_cac":            tools.NewNumberSchema("Expected customer acquisition cost in USD"),
		"expected_roi":            tools.NewNumberSchema("Expected overall ROI percentage"),
		"confidence_score":        tools.NewNumberSchema("Confidence in predictions (0-1)"),
		"rationale":               tools.NewStringSchema("Strategic rationale for the marketing plan"),
	}, []string{
		"ad_campaigns", "content_strategy", "channel_recommendations",
		"total_monthly_budget", "expected_monthly_leads", "expected_cac",
		"expected_roi", "confidence_score", "rationale",
	})
}
