package planner

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeUnknownStrategy indicates no strategy is registered under a name.
	ErrCodeUnknownStrategy ConfigErrorCode = "UNKNOWN_STRATEGY"

	// ErrCodeDuplicateStrategy indicates a name was registered twice.
	ErrCodeDuplicateStrategy ConfigErrorCode = "DUPLICATE_STRATEGY"

	// ErrCodeInvalidOption indicates an option value this strategy cannot use.
	ErrCodeInvalidOption ConfigErrorCode = "INVALID_OPTION"

	// ErrCodeConstructionFailed indicates a strategy constructor failed.
	ErrCodeConstructionFailed ConfigErrorCode = "CONSTRUCTION_FAILED"

	// ErrCodeCacheConflict indicates the cached instance belongs to another strategy.
	ErrCodeCacheConflict ConfigErrorCode = "CACHE_CONFLICT"

	// ErrCodeInvalidModel indicates the configured record model is unusable.
	ErrCodeInvalidModel ConfigErrorCode = "INVALID_MODEL"
)

// ConfigurationError is a fatal error found while resolving or constructing
// a strategy. It is reported before any planning work begins and is never
// retried.
type ConfigurationError struct {
	Code     ConfigErrorCode
	Strategy string
	Option   string
	Message  string
	Err      error
}

func (e *ConfigurationError) Error() string {
	var ctx []string
	if e.Strategy != "" {
		ctx = append(ctx, "strategy="+e.Strategy)
	}
	if e.Option != "" {
		ctx = append(ctx, "option="+e.Option)
	}
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if len(ctx) > 0 {
		msg += " (" + strings.Join(ctx, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// PlanErrorCode categorizes planning errors.
type PlanErrorCode string

const (
	// ErrCodeMissingField indicates a record lacks a field the strategy must address.
	ErrCodeMissingField PlanErrorCode = "MISSING_FIELD"

	// ErrCodeInvalidFieldValue indicates a field holds a value the strategy cannot order or compare.
	ErrCodeInvalidFieldValue PlanErrorCode = "INVALID_FIELD_VALUE"

	// ErrCodeUnsupportedModel indicates the record model lacks what the strategy needs.
	ErrCodeUnsupportedModel PlanErrorCode = "UNSUPPORTED_MODEL"

	// ErrCodeNilRecord indicates an arriving record is nil.
	ErrCodeNilRecord PlanErrorCode = "NIL_RECORD"
)

// PlanningError is a structural precondition failure in one planning call.
// The driver decides whether to fail the batch or skip the partition.
type PlanningError struct {
	Code     PlanErrorCode
	Strategy string
	Field    string

	// RecordIndex is the position of the offending arriving record, or -1
	// when the failure is not tied to one record.
	RecordIndex int

	Message string
}

func (e *PlanningError) Error() string {
	ctx := []string{"strategy=" + e.Strategy}
	if e.Field != "" {
		ctx = append(ctx, "field="+e.Field)
	}
	if e.RecordIndex >= 0 {
		ctx = append(ctx, fmt.Sprintf("record=%d", e.RecordIndex))
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(ctx, ", "))
}

// IsConfigurationError returns true if err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsPlanningError returns true if err is or wraps a PlanningError.
func IsPlanningError(err error) bool {
	var pe *PlanningError
	return errors.As(err, &pe)
}

func missingField(strategy, field string, idx int) *PlanningError {
	return &PlanningError{
		Code:        ErrCodeMissingField,
		Strategy:    strategy,
		Field:       field,
		RecordIndex: idx,
		Message:     "record has no field " + fmt.Sprintf("%q", field),
	}
}
