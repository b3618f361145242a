// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crucible-labs/crucible/internal/store/model"
	"github.com/crucible-labs/crucible/pkg/pipeline"
	"github.com/crucible-labs/crucible/pkg/types"
)

// ErrValidationNotFound is returned when no record exists for an id.
var ErrValidationNotFound = errors.New("validation not found")

// Validation is the persistence interface for validation records. It
// covers both the CRUD surface used by the API and the state
// transitions driven by the pipeline.
type Validation interface {
	pipeline.Store

	InitialMigration() error
	Create(ctx context.Context, validation *model.Validation) (*model.Validation, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Validation, error)
	List(ctx context.Context, skip, limit int) (model.ValidationList, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ValidationStore struct {
	db *gorm.DB
}

// Make sure we conform to both interfaces
var _ Validation = (*ValidationStore)(nil)
var _ pipeline.Store = (*ValidationStore)(nil)

func NewValidationStore(db *gorm.DB) Validation {
	return &ValidationStore{db: db}
}

func (s *ValidationStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Validation{})
}

func (s *ValidationStore) Create(ctx context.Context, validation *model.Validation) (*model.Validation, error) {
	if validation.Status == "" {
		validation.Status = string(pipeline.StatusPending)
	}
	result := s.db.WithContext(ctx).Create(validation)
	if result.Error != nil {
		return nil, result.Error
	}
	return validation, nil
}

func (s *ValidationStore) Get(ctx context.Context, id uuid.UUID) (*model.Validation, error) {
	var validation model.Validation
	result := s.db.WithContext(ctx).First(&validation, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrValidationNotFound
		}
		return nil, result.Error
	}
	return &validation, nil
}

func (s *ValidationStore) List(ctx context.Context, skip, limit int) (model.ValidationList, int64, error) {
	var total int64
	if result := s.db.WithContext(ctx).Model(&model.Validation{}).Count(&total); result.Error != nil {
		return nil, 0, result.Error
	}

	var validations model.ValidationList
	result := s.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&validations)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	return validations, total, nil
}

func (s *ValidationStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&model.Validation{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrValidationNotFound
	}
	return nil
}

// DeleteTerminalOlderThan removes completed, failed and cancelled
// validations updated before the cutoff. Used by the retention job.
func (s *ValidationStore) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("status IN ?", []string{
			string(pipeline.StatusCompleted),
			string(pipeline.StatusFailed),
			string(pipeline.StatusCancelled),
		}).
		Where("updated_at < ?", cutoff).
		Delete(&model.Validation{})
	return result.RowsAffected, result.Error
}

func (s *ValidationStore) SetProcessing(ctx context.Context, jobID string, stage types.Stage, taskID string) error {
	return s.update(ctx, jobID, map[string]interface{}{
		"status":        string(pipeline.StatusProcessing),
		"current_stage": string(stage),
		"task_id":       taskID,
	})
}

func (s *ValidationStore) SaveStageOutput(ctx context.Context, jobID string, stage types.Stage, output map[string]interface{}, rawOutput string) error {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return fmt.Errorf("invalid validation id %q: %w", jobID, err)
	}

	doc, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("failed to marshal %s output: %w", stage, err)
	}

	validation, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	raws := map[string]string{}
	if len(validation.RawOutputs) > 0 {
		if err := json.Unmarshal(validation.RawOutputs, &raws); err != nil {
			return fmt.Errorf("failed to decode raw outputs: %w", err)
		}
	}
	raws[string(stage)] = rawOutput
	rawDoc, err := json.Marshal(raws)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{"raw_outputs": rawDoc}
	switch stage {
	case types.StageResearch:
		updates["market_research"] = doc
	case types.StageExperiment:
		updates["experiments"] = doc
	case types.StageMarketing:
		updates["marketing_campaigns"] = doc
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}

	return s.update(ctx, jobID, updates)
}

func (s *ValidationStore) SetCompleted(ctx context.Context, jobID string, totalCost float64, elapsed time.Duration) error {
	now := time.Now()
	return s.update(ctx, jobID, map[string]interface{}{
		"status":          string(pipeline.StatusCompleted),
		"total_cost":      totalCost,
		"elapsed_seconds": elapsed.Seconds(),
		"completed_at":    &now,
	})
}

func (s *ValidationStore) SetFailed(ctx context.Context, jobID string, stage types.Stage, cause string) error {
	return s.update(ctx, jobID, map[string]interface{}{
		"status":        string(pipeline.StatusFailed),
		"current_stage": string(stage),
		"error":         cause,
	})
}

func (s *ValidationStore) SetCancelled(ctx context.Context, jobID string) error {
	return s.update(ctx, jobID, map[string]interface{}{
		"status": string(pipeline.StatusCancelled),
	})
}

func (s *ValidationStore) update(ctx context.Context, jobID string, updates map[string]interface{}) error {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return fmt.Errorf("invalid validation id %q: %w", jobID, err)
	}
	result := s.db.WithContext(ctx).
		Model(&model.Validation{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrValidationNotFound
	}
	return nil
}
