// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/crucible-labs/crucible/internal/store/model"
	"github.com/crucible-labs/crucible/pkg/pipeline"
)

type HealthReply struct {
	Status string `json:"status"`
}

type ErrorReply struct {
	Error string `json:"error"`
}

// ValidationReply is the full resource representation.
type ValidationReply struct {
	ID                 string                 `json:"id"`
	BusinessIdea       string                 `json:"business_idea"`
	TargetMarket       string                 `json:"target_market,omitempty"`
	Industry           string                 `json:"industry,omitempty"`
	Status             string                 `json:"status"`
	CurrentStage       string                 `json:"current_stage,omitempty"`
	Error              string                 `json:"error,omitempty"`
	MarketResearch     map[string]interface{} `json:"market_research,omitempty"`
	Experiments        map[string]interface{} `json:"experiments,omitempty"`
	MarketingCampaigns map[string]interface{} `json:"marketing_campaigns,omitempty"`
	TotalCost          float64                `json:"total_cost"`
	ElapsedSeconds     float64                `json:"elapsed_seconds"`
	CompletedAt        *time.Time             `json:"completed_at,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
}

func NewValidationReply(v *model.Validation) ValidationReply {
	return ValidationReply{
		ID:                 v.ID.String(),
		BusinessIdea:       v.BusinessIdea,
		TargetMarket:       v.TargetMarket,
		Industry:           v.Industry,
		Status:             v.Status,
		CurrentStage:       v.CurrentStage,
		Error:              v.Error,
		MarketResearch:     decodeDoc(v.MarketResearch),
		Experiments:        decodeDoc(v.Experiments),
		MarketingCampaigns: decodeDoc(v.MarketingCampaigns),
		TotalCost:          v.TotalCost,
		ElapsedSeconds:     v.ElapsedSeconds,
		CompletedAt:        v.CompletedAt,
		CreatedAt:          v.CreatedAt,
	}
}

// ValidationListReply is a paginated collection.
type ValidationListReply struct {
	Items []ValidationReply `json:"items"`
	Total int64             `json:"total"`
	Skip  int               `json:"skip"`
	Limit int               `json:"limit"`
}

func NewValidationListReply(validations model.ValidationList, total int64, skip, limit int) ValidationListReply {
	items := make([]ValidationReply, 0, len(validations))
	for i := range validations {
		items = append(items, NewValidationReply(&validations[i]))
	}
	return ValidationListReply{Items: items, Total: total, Skip: skip, Limit: limit}
}

// StatusReply wraps the pipeline status view.
type StatusReply struct {
	pipeline.StatusView
}

type CancelReply struct {
	Cancelled bool `json:"cancelled"`
}

func (h HealthReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func (e ErrorReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func (v ValidationReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func (l ValidationListReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func (s StatusReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func (c CancelReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func decodeDoc(raw []byte) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	return doc
}
