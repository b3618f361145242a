// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, tool Tool, query string) string {
	t.Helper()
	res, err := tool.Execute(context.Background(), map[string]interface{}{"query": query})
	require.NoError(t, err)
	require.True(t, res.Success)
	s, ok := res.Data.(string)
	require.True(t, ok)
	return s
}

func TestConversionRateEstimator(t *testing.T) {
	tool := &ConversionRateEstimator{}

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"default rate", "a regular product", "Estimated conversion rate: 2.0%"},
		{"saas base rate", "a saas platform for teams", "Estimated conversion rate: 2.5%"},
		{"b2b base rate", "a b2b analytics service", "Estimated conversion rate: 1.2%"},
		{"free trial boost", "a saas platform with a free trial", "Estimated conversion rate: 3.2%"},
		{"enterprise penalty", "an enterprise fintech product", "Estimated conversion rate: 1.2%"},
		{"innovative boost", "an innovative education app", "Estimated conversion rate: 3.6%"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, run(t, tool, tc.query), tc.want)
		})
	}
}

func TestAudienceSizeEstimator(t *testing.T) {
	tool := &AudienceSizeEstimator{}

	assert.Contains(t, run(t, tool, "everyone"), "300000000 people")

	// 300M * 0.22 * 0.82 * 0.20 = 10,824,000
	got := run(t, tool, "urban millennials with high income")
	assert.Contains(t, got, "10824000 people")

	// professionals dominates when multiple age segments absent
	assert.Contains(t, run(t, tool, "working professionals"), "120000000 people")
}

func TestROICalculator(t *testing.T) {
	tool := &ROICalculator{}

	// No channel named falls back to the industry average
	assert.Contains(t, run(t, tool, "a new startup"), "Expected ROI: 125.0%")

	// email: clicks = 5000/0.1 = 50000, conv = 2000, revenue = 300000, roi = 5900%
	assert.Contains(t, run(t, tool, "spend $5,000 on email outreach"), "Expected ROI: 5900.0%")

	// Budget extraction from the query
	assert.Contains(t, run(t, tool, "put $2,000 into seo"), "$2000.00 budget")
}

func TestBudgetOptimizer(t *testing.T) {
	tool := &BudgetOptimizer{}

	b2b := run(t, tool, "b2b product with $20,000 monthly budget")
	assert.Contains(t, b2b, "Optimized budget allocation for $20000:")
	assert.Contains(t, b2b, "LinkedIn Ads: $6000 (30%)")
	assert.Contains(t, b2b, "SEO: $2000 (10%)")

	ecom := run(t, tool, "an ecommerce store")
	assert.Contains(t, ecom, "Google Ads: $3500 (35%)")
	assert.Contains(t, ecom, "Influencer Marketing: $1000 (10%)")

	def := run(t, tool, "a saas tool")
	assert.Contains(t, def, "Google Ads: $3000 (30%)")
	assert.Contains(t, def, "Content Marketing: $2500 (25%)")
}

func TestCACEstimator(t *testing.T) {
	tool := &CACEstimator{}

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"default", "a new product", "$300"},
		{"saas", "a saas product", "$395"},
		{"ecommerce smb", "ecommerce for small business owners", "$49"},
		{"enterprise healthcare", "enterprise healthcare platform", "$825"},
		{"organic discount", "saas growth via organic channels", "$237"},
		{"paid premium", "fintech with paid acquisition", "$540"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, run(t, tool, tc.query), tc.want)
		})
	}
}

func TestRegistryExecute(t *testing.T) {
	reg := NewRegistry()
	for _, tool := range ExperimentTools() {
		reg.Register(tool)
	}
	for _, tool := range MarketingTools() {
		reg.Register(tool)
	}

	assert.Len(t, reg.List(), 5)

	res, err := reg.Execute(context.Background(), "roi_calculator", map[string]interface{}{"query": "email"})
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = reg.Execute(context.Background(), "nonexistent", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "tool_not_found", res.Error.Code)
}
