package engine

import (
	"errors"
	"fmt"
)

// BatchErrorCode categorizes batch failures.
type BatchErrorCode string

const (
	// ErrCodePlanningFailed indicates a partition's planning call failed.
	ErrCodePlanningFailed BatchErrorCode = "PLANNING_FAILED"

	// ErrCodeStoreUnavailable indicates the batch needs a store the context lacks.
	ErrCodeStoreUnavailable BatchErrorCode = "STORE_UNAVAILABLE"

	// ErrCodeExistingFailed indicates existing records could not be fetched.
	ErrCodeExistingFailed BatchErrorCode = "EXISTING_FAILED"

	// ErrCodeWriteFailed indicates the plan could not be applied.
	ErrCodeWriteFailed BatchErrorCode = "WRITE_FAILED"
)

// BatchError reports why a batch produced no writes.
//
// The underlying planner, store, or context error is available through
// errors.As and errors.Is.
type BatchError struct {
	// Code identifies the error category.
	Code BatchErrorCode

	// Message is a human-readable description.
	Message string

	// Strategy is the planner in use, when known.
	Strategy string

	// Partition is the failing partition, or -1.
	Partition int

	Err error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Strategy != "" && e.Partition >= 0:
		msg += fmt.Sprintf(" (strategy=%s, partition=%d)", e.Strategy, e.Partition)
	case e.Strategy != "":
		msg += fmt.Sprintf(" (strategy=%s)", e.Strategy)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// IsBatchError returns true if err is or wraps a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsBatchErrorCode returns true if err is a BatchError with the given code.
func IsBatchErrorCode(err error, code BatchErrorCode) bool {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}
