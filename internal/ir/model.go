package ir

import (
	"errors"
	"fmt"
	"slices"
)

// ErrEmptyKey is returned when a RecordModel is built without key fields.
var ErrEmptyKey = errors.New("record model requires at least one key field")

// RecordModel describes the shape of a dataset relevant to planning.
//
// The key field order matters: composite keys compare in this order and
// strategies that address "the key field" use index 0.
type RecordModel struct {
	keyFieldNames        []string
	lastUpdatedFieldName string
	timestampFieldName   string
}

// ModelOption configures optional RecordModel fields.
type ModelOption func(*RecordModel)

// WithLastUpdatedField names the field planners stamp with the current time.
func WithLastUpdatedField(name string) ModelOption {
	return func(m *RecordModel) {
		m.lastUpdatedFieldName = name
	}
}

// WithTimestampField names the event-time field used by strategies that
// order same-key records.
func WithTimestampField(name string) ModelOption {
	return func(m *RecordModel) {
		m.timestampFieldName = name
	}
}

// NewRecordModel creates a RecordModel. keyFieldNames is copied.
//
// Returns ErrEmptyKey if no key fields are given, or an error if a key
// field name is empty or repeated.
func NewRecordModel(keyFieldNames []string, opts ...ModelOption) (*RecordModel, error) {
	if len(keyFieldNames) == 0 {
		return nil, ErrEmptyKey
	}
	seen := make(map[string]bool, len(keyFieldNames))
	for i, name := range keyFieldNames {
		if name == "" {
			return nil, fmt.Errorf("key field %d has an empty name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("key field %q declared twice", name)
		}
		seen[name] = true
	}

	m := &RecordModel{keyFieldNames: slices.Clone(keyFieldNames)}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// MustRecordModel is like NewRecordModel but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRecordModel(keyFieldNames []string, opts ...ModelOption) *RecordModel {
	m, err := NewRecordModel(keyFieldNames, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// KeyFieldNames returns a copy of the ordered key field names.
func (m *RecordModel) KeyFieldNames() []string {
	return slices.Clone(m.keyFieldNames)
}

// FirstKeyFieldName returns the key field at index 0.
func (m *RecordModel) FirstKeyFieldName() string {
	return m.keyFieldNames[0]
}

// HasCompositeKey reports whether the key spans more than one field.
func (m *RecordModel) HasCompositeKey() bool {
	return len(m.keyFieldNames) > 1
}

// HasLastUpdatedField reports whether planners stamp a last-updated field.
func (m *RecordModel) HasLastUpdatedField() bool {
	return m.lastUpdatedFieldName != ""
}

// LastUpdatedFieldName returns the last-updated field name, or "" when
// HasLastUpdatedField is false.
func (m *RecordModel) LastUpdatedFieldName() string {
	return m.lastUpdatedFieldName
}

// HasTimestampField reports whether records carry an event-time field.
func (m *RecordModel) HasTimestampField() bool {
	return m.timestampFieldName != ""
}

// TimestampFieldName returns the event-time field name, or "".
func (m *RecordModel) TimestampFieldName() string {
	return m.timestampFieldName
}
