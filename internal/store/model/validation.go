// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Validation is the persisted record of one validation job. Stage outputs
// are stored as raw JSON documents so the schema can evolve without
// migrations.
type Validation struct {
	ID                 uuid.UUID `gorm:"primaryKey"`
	BusinessIdea       string    `gorm:"type:text;not null"`
	TargetMarket       string
	Industry           string
	Status             string `gorm:"index;not null"`
	CurrentStage       string
	TaskID             string
	Error              string `gorm:"type:text"`
	MarketResearch     []byte `gorm:"type:jsonb"`
	Experiments        []byte `gorm:"type:jsonb"`
	MarketingCampaigns []byte `gorm:"type:jsonb"`
	RawOutputs         []byte `gorm:"type:jsonb"`
	TotalCost          float64
	ElapsedSeconds     float64
	CompletedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type ValidationList []Validation

func (v Validation) String() string {
	val, _ := json.Marshal(v)
	return string(val)
}
