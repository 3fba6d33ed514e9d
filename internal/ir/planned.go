package ir

import "encoding/json"

// PlannedRecord pairs a record with the operation to perform on it.
//
// A PlannedRecord is created once during a planning call and consumed once
// by the writer. The pair cannot be changed after construction.
type PlannedRecord struct {
	record Record
	op     OperationType
}

// NewPlannedRecord creates a PlannedRecord.
func NewPlannedRecord(record Record, op OperationType) PlannedRecord {
	return PlannedRecord{record: record, op: op}
}

// Record returns the planned record.
func (p PlannedRecord) Record() Record {
	return p.record
}

// Operation returns the planned operation type.
func (p PlannedRecord) Operation() OperationType {
	return p.op
}

// MarshalJSON encodes the pair as {"op": ..., "record": {...}}.
func (p PlannedRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Op     OperationType `json:"op"`
		Record Record        `json:"record"`
	}{p.op, p.record})
}

// Canonical returns the canonical-JSON-ready form of the pair, used for
// golden comparison and hashing.
func (p PlannedRecord) Canonical() map[string]any {
	return map[string]any{
		"op":     string(p.op),
		"record": map[string]any(p.record),
	}
}
