// Package ir provides the planning data model for envelope.
//
// This package contains the types every other internal package shares:
// RecordModel, Record, OperationType and PlannedRecord, plus canonical
// JSON encoding and key identity hashing over records. ir imports nothing
// internal.
//
// Key design constraints:
//   - RecordModel is immutable once constructed and shared by reference
//   - PlannedRecord is created once per planned record and never mutated
//   - Records are mutable in place only while a planning call owns them
//   - Key identity is computed from canonical JSON, never from Go map order
package ir
