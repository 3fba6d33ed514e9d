package ir

import (
	"bytes"
	"maps"
)

// Record is a single keyed tuple of named field values.
//
// Records are produced by translators and handed to exactly one planning
// call, which may overwrite field values in place. Absent fields and fields
// holding nil are different: a field must be present to be addressed.
type Record map[string]any

// Has reports whether the field is present, even if its value is nil.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Get returns the field value, or nil when absent.
func (r Record) Get(field string) any {
	return r[field]
}

// Set overwrites the field value.
func (r Record) Set(field string, value any) {
	r[field] = value
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// EqualIgnoring reports whether two records hold canonically equal values
// for every field, skipping the named fields. Records that cannot be
// canonically encoded are never equal.
func (r Record) EqualIgnoring(other Record, ignore ...string) bool {
	a, err := MarshalCanonical(r.without(ignore))
	if err != nil {
		return false
	}
	b, err := MarshalCanonical(other.without(ignore))
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func (r Record) without(fields []string) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, f := range fields {
		delete(out, f)
	}
	return out
}
