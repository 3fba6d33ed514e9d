package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/envelope/internal/ir"
)

// ErrRowNotFound is returned when an UPDATE or DELETE addresses a row that
// is not stored.
var ErrRowNotFound = errors.New("stored row not found")

// RejectedOperationError reports a planned record whose operation type the
// planner did not declare. It is returned before anything is written.
type RejectedOperationError struct {
	Index     int
	Operation ir.OperationType
	Allowed   []ir.OperationType
}

func (e *RejectedOperationError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, op := range e.Allowed {
		allowed[i] = op.String()
	}
	return fmt.Sprintf("planned record %d: operation %s not declared by planner (declared: %s)",
		e.Index, e.Operation, strings.Join(allowed, ", "))
}

// IsRejectedOperation returns true if err is or wraps a RejectedOperationError.
func IsRejectedOperation(err error) bool {
	var re *RejectedOperationError
	return errors.As(err, &re)
}
