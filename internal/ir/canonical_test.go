package ir

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"null", nil, "null"},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"max int64", int64(math.MaxInt64), "9223372036854775807"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"integral float", 2.0, "2"},
		{"fractional float", 2.5, "2.5"},
		{"large integral float", 1e15, "1000000000000000"},
		{"largest exact integral float", float64(1 << 53), "9007199254740992"},
		{"float beyond exact range", 1e20, "1e+20"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"array of mixed", []any{1, "a", nil}, `[1,"a",null]`},
		{"record", Record{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := Record{
		"zebra": 1,
		"alpha": 2,
		"beta":  map[string]any{"y": 1, "x": 2},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"x":2,"y":1},"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16Order(t *testing.T) {
	// U+10000 sorts after U+FF61 in UTF-8 but before it in UTF-16
	obj := map[string]any{"\U00010000": 1, "\uFF61": 2}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":1,\"\uFF61\":2}", string(result))
}

func TestMarshalCanonicalNoHTMLEscaping(t *testing.T) {
	result, err := MarshalCanonical("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := "e\u0301"
	composed := "\u00e9"

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonicalTime(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	result, err := MarshalCanonical(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01T11:00:00Z"`, string(result))
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(math.NaN())
	assert.Error(t, err)

	_, err = MarshalCanonical(struct{}{})
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"a": []any{make(chan int)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `object["a"]`)
}
