// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package api exposes the validation REST endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/crucible-labs/crucible/internal/service"
)

// Server serves the validation REST API.
type Server struct {
	address    string
	handler    *Handler
	restServer *http.Server
	logger     *zap.Logger
}

func NewServer(address string, validations *service.ValidationService, logger *zap.Logger) *Server {
	return &Server{
		address: address,
		handler: NewHandler(validations, logger),
		logger:  logger,
	}
}

// Start runs the HTTP server until Stop is called.
func (s *Server) Start() error {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	s.handler.Register(router)

	s.restServer = &http.Server{Addr: s.address, Handler: router}

	s.logger.Info("api server listening", zap.String("address", s.address))
	err := s.restServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(timeout time.Duration) error {
	if s.restServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.restServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to gracefully shut down the server", zap.Error(err))
		return err
	}
	return nil
}
