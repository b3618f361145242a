// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrValidationNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "validation")
}

type ErrValidationNotCancellable struct {
	error
}

func NewErrValidationNotCancellable(id uuid.UUID, status string) *ErrValidationNotCancellable {
	return &ErrValidationNotCancellable{fmt.Errorf("validation %s is already %s", id, status)}
}
