// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package store persists validation records and their stage outputs.
package store

import (
	"gorm.io/gorm"
)

type Store interface {
	Validation() Validation
	InitialMigration() error
	Close() error
}

type DataStore struct {
	validation Validation
	db         *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		validation: NewValidationStore(db),
		db:         db,
	}
}

func (s *DataStore) Validation() Validation {
	return s.validation
}

func (s *DataStore) InitialMigration() error {
	return s.validation.InitialMigration()
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
