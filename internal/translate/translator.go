package translate

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/envelope/internal/ir"
	"github.com/roach88/envelope/internal/planner"
)

// Options shared by the built-in translators.
const (
	OptionTranslator = "translator"
	OptionFieldNames = "translator.field.names"
	OptionFieldTypes = "translator.field.types"
)

// Built-in translator names.
const (
	NameDelimited = "delimited"
	NameKVP       = "kvp"
	NameJSON      = "json"
)

// FieldType is the declared type of a translated field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "int"
	TypeLong    FieldType = "long"
	TypeFloat   FieldType = "float"
	TypeDouble  FieldType = "double"
	TypeBoolean FieldType = "boolean"
)

// Field is one declared output field.
type Field struct {
	Name string
	Type FieldType
}

// Translator converts one message into a record.
type Translator interface {
	// Translate converts message into a record. key may be nil.
	Translate(key, message []byte) (ir.Record, error)

	// Fields returns the declared output fields in order. A translator that
	// passes fields through unchanged returns nil.
	Fields() []Field
}

// TranslationError reports a message that could not be translated.
type TranslationError struct {
	Translator string
	Field      string
	Message    string
	Err        error
}

func (e *TranslationError) Error() string {
	msg := fmt.Sprintf("translate %s: %s", e.Translator, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("translate %s: field %q: %s", e.Translator, e.Field, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

// Factory constructs a translator from the shared configuration.
type Factory func(cfg planner.Config) (Translator, error)

// Registry maps translator names to factories.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a Registry with the built-in translators registered.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{
		NameDelimited: func(cfg planner.Config) (Translator, error) { return NewDelimited(cfg) },
		NameKVP:       func(cfg planner.Config) (Translator, error) { return NewKVP(cfg) },
		NameJSON:      func(cfg planner.Config) (Translator, error) { return NewJSON(cfg) },
	}}
}

// Register adds an external translator.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" || f == nil {
		return &planner.ConfigurationError{
			Code:    planner.ErrCodeInvalidOption,
			Option:  OptionTranslator,
			Message: "translator registration needs a name and a factory",
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return &planner.ConfigurationError{
			Code:    planner.ErrCodeDuplicateStrategy,
			Option:  OptionTranslator,
			Message: fmt.Sprintf("translator %q already registered", name),
		}
	}
	r.factories[name] = f
	return nil
}

// Names returns the registered translator names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve constructs the translator named by cfg["translator"].
func (r *Registry) Resolve(cfg planner.Config) (Translator, error) {
	name := cfg.String(OptionTranslator, "")
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &planner.ConfigurationError{
			Code:    planner.ErrCodeUnknownStrategy,
			Option:  OptionTranslator,
			Message: fmt.Sprintf("no translator %q; known: %v", name, r.Names()),
		}
	}
	return f(cfg)
}

// parseFields reads the declared field names and types. Types default to
// string when translator.field.types is absent.
func parseFields(cfg planner.Config) ([]Field, error) {
	names := cfg.List(OptionFieldNames)
	types := cfg.List(OptionFieldTypes)
	if len(types) > 0 && len(types) != len(names) {
		return nil, &planner.ConfigurationError{
			Code:    planner.ErrCodeInvalidOption,
			Option:  OptionFieldTypes,
			Message: fmt.Sprintf("%d types for %d field names", len(types), len(names)),
		}
	}

	fields := make([]Field, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if name == "" || seen[name] {
			return nil, &planner.ConfigurationError{
				Code:    planner.ErrCodeInvalidOption,
				Option:  OptionFieldNames,
				Message: fmt.Sprintf("field name %q is empty or repeated", name),
			}
		}
		seen[name] = true

		typ := TypeString
		if len(types) > 0 {
			typ = FieldType(strings.ToLower(types[i]))
		}
		switch typ {
		case TypeString, TypeInt, TypeLong, TypeFloat, TypeDouble, TypeBoolean:
		default:
			return nil, &planner.ConfigurationError{
				Code:    planner.ErrCodeInvalidOption,
				Option:  OptionFieldTypes,
				Message: fmt.Sprintf("unsupported type %q for field %q", types[i], name),
			}
		}
		fields[i] = Field{Name: name, Type: typ}
	}
	return fields, nil
}

// convert parses a raw string into the field's declared type. An empty
// value of a non-string type is nil.
func convert(translator string, f Field, raw string) (any, error) {
	if f.Type == TypeString {
		return raw, nil
	}
	if raw == "" {
		return nil, nil
	}

	var (
		v   any
		err error
	)
	switch f.Type {
	case TypeInt:
		var n int64
		n, err = strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
		v = n
	case TypeLong:
		var n int64
		n, err = strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		v = n
	case TypeFloat, TypeDouble:
		var n float64
		n, err = strconv.ParseFloat(strings.TrimSpace(raw), 64)
		v = n
	case TypeBoolean:
		var b bool
		b, err = strconv.ParseBool(strings.TrimSpace(raw))
		v = b
	}
	if err != nil {
		return nil, &TranslationError{
			Translator: translator,
			Field:      f.Name,
			Message:    fmt.Sprintf("cannot parse %q as %s", raw, f.Type),
			Err:        err,
		}
	}
	return v, nil
}

// emptyRecord returns a record holding every declared field set to nil.
func emptyRecord(fields []Field) ir.Record {
	r := make(ir.Record, len(fields))
	for _, f := range fields {
		r[f.Name] = nil
	}
	return r
}
