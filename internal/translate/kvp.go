package translate

import (
	"strings"

	"github.com/roach88/envelope/internal/ir"
	"github.com/roach88/envelope/internal/planner"
)

// Options for key-value-pair messages such as "id=1,name=a".
const (
	OptionKVPDelimiter   = "translator.kvp.delimiter.kvp"
	OptionFieldDelimiter = "translator.kvp.delimiter.field"
)

// KVP reads key-value pairs and keeps the declared fields. Pairs naming
// undeclared fields are ignored.
type KVP struct {
	pairDelimiter  string
	fieldDelimiter string
	fields         []Field
	index          map[string]int
}

// NewKVP parses cfg. At least one field name is required.
func NewKVP(cfg planner.Config) (*KVP, error) {
	fields, err := parseFields(cfg)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, &planner.ConfigurationError{
			Code:    planner.ErrCodeInvalidOption,
			Option:  OptionFieldNames,
			Message: "kvp translator needs field names",
		}
	}

	k := &KVP{
		pairDelimiter:  cfg.String(OptionKVPDelimiter, ","),
		fieldDelimiter: cfg.String(OptionFieldDelimiter, "="),
		fields:         fields,
		index:          make(map[string]int, len(fields)),
	}
	if k.pairDelimiter == "" || k.fieldDelimiter == "" || k.pairDelimiter == k.fieldDelimiter {
		return nil, &planner.ConfigurationError{
			Code:    planner.ErrCodeInvalidOption,
			Option:  OptionKVPDelimiter,
			Message: "pair and field delimiters must be non-empty and distinct",
		}
	}
	for i, f := range fields {
		k.index[f.Name] = i
	}
	return k, nil
}

func (k *KVP) Translate(_, message []byte) (ir.Record, error) {
	r := emptyRecord(k.fields)
	if len(message) == 0 {
		return r, nil
	}
	for _, pair := range strings.Split(string(message), k.pairDelimiter) {
		name, raw, ok := strings.Cut(pair, k.fieldDelimiter)
		if !ok {
			continue
		}
		i, declared := k.index[strings.TrimSpace(name)]
		if !declared {
			continue
		}
		f := k.fields[i]
		v, err := convert(NameKVP, f, raw)
		if err != nil {
			return nil, err
		}
		r[f.Name] = v
	}
	return r, nil
}

func (k *KVP) Fields() []Field {
	return append([]Field(nil), k.fields...)
}
