package planner

import "github.com/google/uuid"

// KeyGenerator produces globally unique key values.
// Implementations must be safe for concurrent use.
type KeyGenerator interface {
	Generate() string
}

// UUIDGenerator generates random (version 4) UUIDs in canonical
// hyphenated form, e.g. "550e8400-e29b-41d4-a716-446655440000".
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate returns a new random UUID string.
func (UUIDGenerator) Generate() string {
	return uuid.NewString()
}
