package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/envelope/internal/ir"
)

// encodePayload serializes a record as canonical JSON text.
func encodePayload(r ir.Record) (string, error) {
	data, err := ir.MarshalCanonical(r)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// decodePayload parses stored JSON text. Numbers stay json.Number so large
// integers survive and re-encode to the same canonical form.
func decodePayload(data string) (ir.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	var r ir.Record
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if r == nil {
		r = ir.Record{}
	}
	return r, nil
}
