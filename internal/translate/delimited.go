package translate

import (
	"strings"

	"github.com/roach88/envelope/internal/ir"
	"github.com/roach88/envelope/internal/planner"
)

// OptionDelimiter separates values in a delimited message.
const OptionDelimiter = "translator.delimited.delimiter"

// Delimited maps the n-th delimited value of a message to the n-th declared
// field. Extra values are ignored; missing values are nil.
type Delimited struct {
	delimiter string
	fields    []Field
}

// NewDelimited parses cfg. At least one field name is required.
func NewDelimited(cfg planner.Config) (*Delimited, error) {
	fields, err := parseFields(cfg)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, &planner.ConfigurationError{
			Code:    planner.ErrCodeInvalidOption,
			Option:  OptionFieldNames,
			Message: "delimited translator needs field names",
		}
	}
	delim := cfg.String(OptionDelimiter, ",")
	if delim == "" {
		return nil, &planner.ConfigurationError{
			Code:    planner.ErrCodeInvalidOption,
			Option:  OptionDelimiter,
			Message: "delimiter must not be empty",
		}
	}
	return &Delimited{delimiter: delim, fields: fields}, nil
}

func (d *Delimited) Translate(_, message []byte) (ir.Record, error) {
	values := strings.Split(string(message), d.delimiter)
	r := emptyRecord(d.fields)
	for i, f := range d.fields {
		if i >= len(values) {
			break
		}
		v, err := convert(NameDelimited, f, values[i])
		if err != nil {
			return nil, err
		}
		r[f.Name] = v
	}
	return r, nil
}

func (d *Delimited) Fields() []Field {
	return append([]Field(nil), d.fields...)
}
