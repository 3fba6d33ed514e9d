package translate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/envelope/internal/ir"
	"github.com/roach88/envelope/internal/planner"
)

func TestRegistry_ResolveBuiltins(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []string{NameDelimited, NameJSON, NameKVP}, reg.Names())

	tests := []struct {
		name string
		cfg  planner.Config
		want any
	}{
		{"delimited", planner.Config{OptionTranslator: NameDelimited, OptionFieldNames: "id"}, &Delimited{}},
		{"kvp", planner.Config{OptionTranslator: NameKVP, OptionFieldNames: "id"}, &KVP{}},
		{"json", planner.Config{OptionTranslator: NameJSON}, &JSON{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := reg.Resolve(tt.cfg)
			require.NoError(t, err)
			assert.IsType(t, tt.want, tr)
		})
	}
}

func TestRegistry_UnknownTranslator(t *testing.T) {
	_, err := NewRegistry().Resolve(planner.Config{OptionTranslator: "avro"})
	require.Error(t, err)
	assert.True(t, planner.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "UNKNOWN_STRATEGY")
}

type upperTranslator struct{}

func (upperTranslator) Translate(key, message []byte) (ir.Record, error) {
	return ir.Record{"key": string(key), "body": string(message)}, nil
}

func (upperTranslator) Fields() []Field { return nil }

func TestRegistry_RegisterExternal(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("raw", func(planner.Config) (Translator, error) {
		return upperTranslator{}, nil
	}))

	err := reg.Register("raw", func(planner.Config) (Translator, error) { return upperTranslator{}, nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DUPLICATE_STRATEGY")

	tr, err := reg.Resolve(planner.Config{OptionTranslator: "raw"})
	require.NoError(t, err)
	rec, err := tr.Translate([]byte("k"), []byte("v"))
	require.NoError(t, err)
	assert.Equal(t, ir.Record{"key": "k", "body": "v"}, rec)
}

func TestParseFields(t *testing.T) {
	t.Run("types default to string", func(t *testing.T) {
		fields, err := parseFields(planner.Config{OptionFieldNames: "a, b"})
		require.NoError(t, err)
		assert.Equal(t, []Field{{"a", TypeString}, {"b", TypeString}}, fields)
	})

	t.Run("types are case insensitive", func(t *testing.T) {
		fields, err := parseFields(planner.Config{OptionFieldNames: "a,b", OptionFieldTypes: "LONG,Boolean"})
		require.NoError(t, err)
		assert.Equal(t, []Field{{"a", TypeLong}, {"b", TypeBoolean}}, fields)
	})

	bad := []planner.Config{
		{OptionFieldNames: "a,b", OptionFieldTypes: "string"},
		{OptionFieldNames: "a,a"},
		{OptionFieldNames: "a", OptionFieldTypes: "decimal"},
	}
	for _, cfg := range bad {
		_, err := parseFields(cfg)
		require.Error(t, err, "%v", cfg)
		assert.True(t, planner.IsConfigurationError(err))
	}
}

func TestDelimited_Translate(t *testing.T) {
	tr, err := NewDelimited(planner.Config{
		OptionDelimiter:  "|",
		OptionFieldNames: "id,name,score,active,ts",
		OptionFieldTypes: "long,string,double,boolean,string",
	})
	require.NoError(t, err)

	rec, err := tr.Translate(nil, []byte("7|alice|1.5|true|2024-01-01T00:00:00.000Z"))
	require.NoError(t, err)
	assert.Equal(t, ir.Record{
		"id":     int64(7),
		"name":   "alice",
		"score":  1.5,
		"active": true,
		"ts":     "2024-01-01T00:00:00.000Z",
	}, rec)
}

func TestDelimited_MissingValuesAreNil(t *testing.T) {
	tr, err := NewDelimited(planner.Config{OptionFieldNames: "id,name,score", OptionFieldTypes: "long,string,double"})
	require.NoError(t, err)

	rec, err := tr.Translate(nil, []byte("7"))
	require.NoError(t, err)
	assert.Equal(t, ir.Record{"id": int64(7), "name": nil, "score": nil}, rec)

	rec, err = tr.Translate(nil, []byte(",x,"))
	require.NoError(t, err)
	assert.Equal(t, ir.Record{"id": nil, "name": "x", "score": nil}, rec)
}

func TestDelimited_BadValue(t *testing.T) {
	tr, err := NewDelimited(planner.Config{OptionFieldNames: "id", OptionFieldTypes: "int"})
	require.NoError(t, err)

	_, err = tr.Translate(nil, []byte("seven"))
	var te *TranslationError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "id", te.Field)

	_, err = tr.Translate(nil, []byte("99999999999"))
	require.ErrorAs(t, err, &te, "int is 32-bit")
}

func TestDelimited_RequiresFields(t *testing.T) {
	_, err := NewDelimited(planner.Config{})
	assert.True(t, planner.IsConfigurationError(err))

	_, err = NewDelimited(planner.Config{OptionFieldNames: "a", OptionDelimiter: ""})
	assert.True(t, planner.IsConfigurationError(err))
}

func TestKVP_Translate(t *testing.T) {
	tr, err := NewKVP(planner.Config{
		OptionFieldNames: "id,name,count",
		OptionFieldTypes: "string,string,int",
	})
	require.NoError(t, err)

	rec, err := tr.Translate(nil, []byte("name=a=b,id=k1,extra=ignored,broken"))
	require.NoError(t, err)
	assert.Equal(t, ir.Record{"id": "k1", "name": "a=b", "count": nil}, rec)
}

func TestKVP_CustomDelimiters(t *testing.T) {
	tr, err := NewKVP(planner.Config{
		OptionFieldNames:     "id,v",
		OptionFieldTypes:     "long,double",
		OptionKVPDelimiter:   ";",
		OptionFieldDelimiter: ":",
	})
	require.NoError(t, err)

	rec, err := tr.Translate(nil, []byte("id:3;v:0.25"))
	require.NoError(t, err)
	assert.Equal(t, ir.Record{"id": int64(3), "v": 0.25}, rec)

	rec, err = tr.Translate(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Record{"id": nil, "v": nil}, rec)
}

func TestKVP_SameDelimitersRejected(t *testing.T) {
	_, err := NewKVP(planner.Config{
		OptionFieldNames:     "id",
		OptionKVPDelimiter:   "=",
		OptionFieldDelimiter: "=",
	})
	assert.True(t, planner.IsConfigurationError(err))
}

func TestJSON_PassThrough(t *testing.T) {
	tr, err := NewJSON(nil)
	require.NoError(t, err)
	assert.Nil(t, tr.Fields())

	rec, err := tr.Translate(nil, []byte(`{"id":"a","n":12,"nested":{"x":[1,2]}}`))
	require.NoError(t, err)
	assert.Equal(t, "a", rec["id"])
	assert.Equal(t, json.Number("12"), rec["n"])
	assert.Contains(t, rec, "nested")
}

func TestJSON_Projection(t *testing.T) {
	tr, err := NewJSON(planner.Config{
		OptionFieldNames: "id,n,flag,label,missing",
		OptionFieldTypes: "string,long,boolean,string,double",
	})
	require.NoError(t, err)

	rec, err := tr.Translate(nil, []byte(`{"id":5,"n":"12","flag":true,"label":false,"other":1}`))
	require.NoError(t, err)
	assert.Equal(t, ir.Record{
		"id":      "5",
		"n":       int64(12),
		"flag":    true,
		"label":   "false",
		"missing": nil,
	}, rec)
}

func TestJSON_Errors(t *testing.T) {
	tr, err := NewJSON(planner.Config{OptionFieldNames: "n", OptionFieldTypes: "long"})
	require.NoError(t, err)

	for _, msg := range []string{`[1]`, `null`, `not json`, `{"n":[1]}`, `{"n":true}`} {
		_, err := tr.Translate(nil, []byte(msg))
		var te *TranslationError
		assert.ErrorAs(t, err, &te, msg)
	}
}
