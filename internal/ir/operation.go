package ir

import "slices"

// OperationType is the write operation a planner decides for a record.
type OperationType string

const (
	OpInsert OperationType = "INSERT"
	OpUpdate OperationType = "UPDATE"
	OpDelete OperationType = "DELETE"
	OpUpsert OperationType = "UPSERT"
	OpNone   OperationType = "NONE"
)

// operationOrder is the declaration order used for deterministic listings.
var operationOrder = []OperationType{OpInsert, OpUpdate, OpDelete, OpUpsert, OpNone}

// Valid reports whether op is one of the closed set of operation types.
func (op OperationType) Valid() bool {
	return slices.Contains(operationOrder, op)
}

func (op OperationType) String() string {
	return string(op)
}

// OperationSet is a set of operation types a planner may emit.
type OperationSet map[OperationType]struct{}

// NewOperationSet creates a set from the given operation types.
func NewOperationSet(ops ...OperationType) OperationSet {
	s := make(OperationSet, len(ops))
	for _, op := range ops {
		s[op] = struct{}{}
	}
	return s
}

// Contains reports whether op is in the set.
func (s OperationSet) Contains(op OperationType) bool {
	_, ok := s[op]
	return ok
}

// Slice returns the members in declaration order.
func (s OperationSet) Slice() []OperationType {
	out := make([]OperationType, 0, len(s))
	for _, op := range operationOrder {
		if s.Contains(op) {
			out = append(out, op)
		}
	}
	return out
}
