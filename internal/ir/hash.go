package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainKey = "envelope/key/v1"
	DomainRow = "envelope/row/v1"
)

// MissingFieldError reports a field a caller needed to address but the
// record does not contain.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record has no field %q", e.Field)
}

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// KeyHash computes the key identity of a record under the model.
// Records with equal key values in key field order share a KeyHash.
func KeyHash(model *RecordModel, r Record) (string, error) {
	return fieldsHash(DomainKey, model.keyFieldNames, r)
}

// RowHash computes the identity of a stored row from the given fields.
// Strategies that keep several rows per key add version fields here.
func RowHash(fields []string, r Record) (string, error) {
	return fieldsHash(DomainRow, fields, r)
}

func fieldsHash(domain string, fields []string, r Record) (string, error) {
	values := make([]any, len(fields))
	for i, f := range fields {
		v, ok := r[f]
		if !ok {
			return "", &MissingFieldError{Field: f}
		}
		values[i] = v
	}

	canonical, err := MarshalCanonical(values)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}
