package planner

import (
	"maps"
	"strconv"
	"strings"
)

// Config is the string-keyed option set a planner is constructed from.
type Config map[string]string

// Clone returns a copy so later changes by the caller are not observed.
func (c Config) Clone() Config {
	if c == nil {
		return Config{}
	}
	return maps.Clone(c)
}

// String returns the option value, or def when unset.
func (c Config) String(key, def string) string {
	if v, ok := c[key]; ok {
		return v
	}
	return def
}

// Bool parses a boolean option. Unset yields def; an unparseable value is
// an INVALID_OPTION ConfigurationError.
func (c Config) Bool(key string, def bool) (bool, error) {
	v, ok := c[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, &ConfigurationError{
			Code:    ErrCodeInvalidOption,
			Option:  key,
			Message: "expected a boolean, got " + strconv.Quote(v),
			Err:     err,
		}
	}
	return b, nil
}

// Int parses an integer option. Unset yields def.
func (c Config) Int(key string, def int) (int, error) {
	v, ok := c[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, &ConfigurationError{
			Code:    ErrCodeInvalidOption,
			Option:  key,
			Message: "expected an integer, got " + strconv.Quote(v),
			Err:     err,
		}
	}
	return n, nil
}

// List splits a comma-separated option into trimmed, non-empty items.
func (c Config) List(key string) []string {
	var out []string
	for _, item := range strings.Split(c[key], ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
