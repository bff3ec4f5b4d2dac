package types

import "errors"

// Store lifecycle errors.
var (
	ErrStoreClosed = errors.New("store is closed")
	ErrNotFound    = errors.New("entity not found")
)

// ErrIntegrity is the parent of every integrity violation. Mutations that
// would break a graph invariant return an error wrapping it.
var ErrIntegrity = errors.New("integrity violation")

// Integrity violations.
var (
	ErrSelfBlock    = &integrityError{msg: "an issue cannot block itself"}
	ErrCycle        = &integrityError{msg: "dependency would create a cycle"}
	ErrSelfRelation = &integrityError{msg: "an issue cannot be related to itself"}
)

// Import and batch errors.
var (
	ErrUnsupportedExport  = errors.New("unsupported export version")
	ErrInvalidParentIndex = errors.New("parent index must refer to an earlier issue in the batch")
)

type integrityError struct {
	msg string
}

func (e *integrityError) Error() string { return e.msg }

func (e *integrityError) Unwrap() error { return ErrIntegrity }
