// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crucible-labs/crucible/internal/service"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// CreateValidationRequest is the POST body for a new validation.
type CreateValidationRequest struct {
	BusinessIdea string `json:"business_idea" validate:"required,min=10,max=1000"`
	TargetMarket string `json:"target_market" validate:"max=500"`
	Industry     string `json:"industry" validate:"max=200"`
}

type Handler struct {
	validations *service.ValidationService
	validate    *validator.Validate
	logger      *zap.Logger
}

func NewHandler(validations *service.ValidationService, logger *zap.Logger) *Handler {
	return &Handler{
		validations: validations,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Register mounts the API routes on the router.
func (h *Handler) Register(router chi.Router) {
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = render.Render(w, r, HealthReply{Status: "ok"})
	})
	router.Route("/api/v1/validations", func(r chi.Router) {
		r.Post("/", h.createValidation)
		r.Get("/", h.listValidations)
		r.Get("/{id}", h.getValidation)
		r.Delete("/{id}", h.deleteValidation)
		r.Get("/{id}/status", h.getStatus)
		r.Post("/{id}/cancel", h.cancelValidation)
	})
}

func (h *Handler) createValidation(w http.ResponseWriter, r *http.Request) {
	var req CreateValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		renderError(w, r, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	validation, err := h.validations.CreateValidation(r.Context(), service.CreateForm{
		BusinessIdea: req.BusinessIdea,
		TargetMarket: req.TargetMarket,
		Industry:     req.Industry,
	})
	if err != nil {
		h.logger.Error("failed to create validation", zap.Error(err))
		renderError(w, r, http.StatusInternalServerError, "failed to create validation")
		return
	}

	render.Status(r, http.StatusCreated)
	_ = render.Render(w, r, NewValidationReply(validation))
}

func (h *Handler) listValidations(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", defaultListLimit)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	validations, total, err := h.validations.ListValidations(r.Context(), skip, limit)
	if err != nil {
		h.logger.Error("failed to list validations", zap.Error(err))
		renderError(w, r, http.StatusInternalServerError, "failed to list validations")
		return
	}

	_ = render.Render(w, r, NewValidationListReply(validations, total, skip, limit))
}

func (h *Handler) getValidation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	validation, err := h.validations.GetValidation(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	_ = render.Render(w, r, NewValidationReply(validation))
}

func (h *Handler) deleteValidation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.validations.DeleteValidation(r.Context(), id); err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	view, err := h.validations.GetStatus(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	_ = render.Render(w, r, StatusReply{view})
}

func (h *Handler) cancelValidation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	cancelled, err := h.validations.CancelValidation(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	_ = render.Render(w, r, CancelReply{Cancelled: cancelled})
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid validation id")
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *Handler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *service.ErrResourceNotFound
	if errors.As(err, &notFound) {
		renderError(w, r, http.StatusNotFound, err.Error())
		return
	}
	h.logger.Error("request failed", zap.Error(err))
	renderError(w, r, http.StatusInternalServerError, "internal error")
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func validationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return "invalid request"
	}
	fe := fieldErrors[0]
	switch fe.Field() {
	case "BusinessIdea":
		switch fe.Tag() {
		case "required":
			return "business_idea is required"
		case "min":
			return "business_idea must be at least 10 characters"
		case "max":
			return "business_idea must be at most 1000 characters"
		}
	case "TargetMarket":
		return "target_market must be at most 500 characters"
	case "Industry":
		return "industry must be at most 200 characters"
	}
	return "invalid request"
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	_ = render.Render(w, r, ErrorReply{Error: message})
}
