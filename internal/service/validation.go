// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package service implements the validation use cases on top of the
// store and the pipeline orchestrator.
package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crucible-labs/crucible/internal/store"
	"github.com/crucible-labs/crucible/internal/store/model"
	"github.com/crucible-labs/crucible/pkg/pipeline"
	"github.com/crucible-labs/crucible/pkg/types"
)

// CreateForm carries a new validation request.
type CreateForm struct {
	BusinessIdea string
	TargetMarket string
	Industry     string
}

type ValidationService struct {
	store        store.Store
	orchestrator *pipeline.Orchestrator
	logger       *zap.Logger
}

func NewValidationService(store store.Store, orchestrator *pipeline.Orchestrator, logger *zap.Logger) *ValidationService {
	return &ValidationService{
		store:        store,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// CreateValidation persists a pending record and submits the pipeline.
func (s *ValidationService) CreateValidation(ctx context.Context, form CreateForm) (*model.Validation, error) {
	validation := &model.Validation{
		ID:           uuid.New(),
		BusinessIdea: form.BusinessIdea,
		TargetMarket: form.TargetMarket,
		Industry:     form.Industry,
		Status:       string(pipeline.StatusPending),
	}

	created, err := s.store.Validation().Create(ctx, validation)
	if err != nil {
		return nil, err
	}

	if err := s.orchestrator.Start(ctx, created.ID.String(), pipeline.Request{
		BusinessIdea: form.BusinessIdea,
		TargetMarket: form.TargetMarket,
		Industry:     form.Industry,
	}); err != nil {
		s.logger.Error("failed to submit validation pipeline",
			zap.String("validation_id", created.ID.String()),
			zap.Error(err))
		_ = s.store.Validation().SetFailed(ctx, created.ID.String(), types.StageResearch, err.Error())
		return nil, err
	}

	s.logger.Info("validation submitted",
		zap.String("validation_id", created.ID.String()))
	return created, nil
}

func (s *ValidationService) GetValidation(ctx context.Context, id uuid.UUID) (*model.Validation, error) {
	validation, err := s.store.Validation().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrValidationNotFound) {
			return nil, NewErrValidationNotFound(id)
		}
		return nil, err
	}
	return validation, nil
}

func (s *ValidationService) ListValidations(ctx context.Context, skip, limit int) (model.ValidationList, int64, error) {
	return s.store.Validation().List(ctx, skip, limit)
}

// GetStatus returns the live pipeline view when the job is in memory,
// falling back to the persisted record after a restart.
func (s *ValidationService) GetStatus(ctx context.Context, id uuid.UUID) (pipeline.StatusView, error) {
	validation, err := s.GetValidation(ctx, id)
	if err != nil {
		return pipeline.StatusView{}, err
	}

	view := s.orchestrator.Status(id.String())
	if view.Status != pipeline.StatusUnknown {
		return view, nil
	}

	return statusFromRecord(validation), nil
}

// CancelValidation revokes the running pipeline. It reports false when
// the validation already reached a terminal state.
func (s *ValidationService) CancelValidation(ctx context.Context, id uuid.UUID) (bool, error) {
	validation, err := s.GetValidation(ctx, id)
	if err != nil {
		return false, err
	}

	if pipeline.Status(validation.Status).Terminal() {
		return false, nil
	}

	cancelled := s.orchestrator.Cancel(ctx, id.String())
	if !cancelled {
		// The orchestrator lost the job, e.g. after a restart. Mark the
		// record cancelled so it does not stay processing forever.
		if err := s.store.Validation().SetCancelled(ctx, id.String()); err != nil {
			return false, err
		}
		cancelled = true
	}

	s.logger.Info("validation cancelled", zap.String("validation_id", id.String()))
	return cancelled, nil
}

func (s *ValidationService) DeleteValidation(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Validation().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrValidationNotFound) {
			return NewErrValidationNotFound(id)
		}
		return err
	}
	return nil
}

func statusFromRecord(v *model.Validation) pipeline.StatusView {
	status := pipeline.Status(v.Status)
	stage := types.Stage(v.CurrentStage)

	view := pipeline.StatusView{
		ValidationID: v.ID.String(),
		TaskID:       v.TaskID,
		Status:       status,
		Progress:     pipeline.ProgressFor(stage, status),
	}

	switch status {
	case pipeline.StatusPending:
		view.CurrentStep = "Initializing validation"
	case pipeline.StatusProcessing:
		view.CurrentStep = pipeline.StageDescription(stage)
	case pipeline.StatusCompleted:
		view.CurrentStep = "Validation complete"
		view.Result = map[string]interface{}{
			"research":    decodeDocument(v.MarketResearch),
			"experiments": decodeDocument(v.Experiments),
			"campaigns":   decodeDocument(v.MarketingCampaigns),
		}
	case pipeline.StatusFailed:
		view.CurrentStep = "Validation failed: " + v.Error
	case pipeline.StatusCancelled:
		view.CurrentStep = "Validation cancelled"
	}

	return view
}

func decodeDocument(raw []byte) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	return doc
}
