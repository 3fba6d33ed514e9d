package translate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/envelope/internal/ir"
	"github.com/roach88/envelope/internal/planner"
)

// JSON decodes one JSON object per message. Without declared fields every
// member is kept; with declared fields the record is projected onto them
// and typed values are converted.
type JSON struct {
	fields []Field
}

// NewJSON parses cfg. Field names are optional.
func NewJSON(cfg planner.Config) (*JSON, error) {
	fields, err := parseFields(cfg)
	if err != nil {
		return nil, err
	}
	return &JSON{fields: fields}, nil
}

func (j *JSON) Translate(_, message []byte) (ir.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(message))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, &TranslationError{Translator: NameJSON, Message: "message is not a JSON object", Err: err}
	}
	if obj == nil {
		return nil, &TranslationError{Translator: NameJSON, Message: "message is null"}
	}
	if len(j.fields) == 0 {
		return ir.Record(obj), nil
	}

	r := emptyRecord(j.fields)
	for _, f := range j.fields {
		v, err := j.coerce(f, obj[f.Name])
		if err != nil {
			return nil, err
		}
		r[f.Name] = v
	}
	return r, nil
}

func (j *JSON) coerce(f Field, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return convert(NameJSON, f, x)
	case json.Number:
		if f.Type == TypeString {
			return x.String(), nil
		}
		return convert(NameJSON, f, x.String())
	case bool:
		switch f.Type {
		case TypeBoolean:
			return x, nil
		case TypeString:
			return strconv.FormatBool(x), nil
		}
	default:
		if f.Type == TypeString {
			return nil, &TranslationError{
				Translator: NameJSON,
				Field:      f.Name,
				Message:    fmt.Sprintf("nested %T value cannot be read as string", v),
			}
		}
	}
	return nil, &TranslationError{
		Translator: NameJSON,
		Field:      f.Name,
		Message:    fmt.Sprintf("%T value cannot be read as %s", v, f.Type),
	}
}

func (j *JSON) Fields() []Field {
	if len(j.fields) == 0 {
		return nil
	}
	return append([]Field(nil), j.fields...)
}
