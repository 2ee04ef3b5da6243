package core

import (
	"errors"
)

var (
	// A pass referenced a resource that is not materialized in the resource table.
	ErrResourceNotFound = errors.New("resource not found")
	// The concrete object behind a resource is not of the expected kind.
	ErrResourceTypeMismatch = errors.New("resource type mismatch")
	// A resource was requested while it was already present in the resource table.
	ErrResourceAlreadyTaken = errors.New("resource already taken")
	// A resource was released before it was ever requested.
	ErrResourceUninitialized = errors.New("resource uninitialized")
	ErrInvalidHandle         = errors.New("invalid resource node handle")
	ErrInvalidDescriptor     = errors.New("invalid resource descriptor")
	ErrRenderFnAlreadySet    = errors.New("render function already set for pass")
	ErrGraphAlreadyCompiled  = errors.New("frame graph already compiled")
	ErrGraphNotCompiled      = errors.New("frame graph not compiled")
	ErrPipelineNotFound      = errors.New("render pipeline not found")
	ErrShaderNotFound        = errors.New("shader not found")
	ErrQueueFull             = errors.New("queue is full")
	ErrQueueEmpty            = errors.New("queue is empty")
)
