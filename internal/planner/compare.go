package planner

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roach88/envelope/internal/ir"
)

// compareEventTimes orders two event-time values. Both must be numbers,
// both strings, or both time.Time; anything else is an error.
func compareEventTimes(a, b any) (int, error) {
	if af, ok := toNumber(a); ok {
		bf, ok := toNumber(b)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return cmp.Compare(af, bf), nil
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return strings.Compare(av, bv), nil
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return av.Compare(bv), nil
	case nil:
		return 0, fmt.Errorf("event time is null")
	}
	return 0, fmt.Errorf("unsupported event time type %T", a)
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// farFutureFor returns the open-ended upper bound matching the type of the
// event-time value v.
func farFutureFor(v any, farFutureString string) any {
	switch v.(type) {
	case float32, float64:
		return math.MaxFloat64
	case int, int32, int64, json.Number:
		return int64(math.MaxInt64)
	case time.Time:
		return time.Date(9999, 12, 31, 23, 59, 59, 999_000_000, time.UTC)
	}
	return farFutureString
}

// eventTime reads the model's event-time field from r.
func eventTime(strategy string, r ir.Record, model *ir.RecordModel, idx int) (any, error) {
	field := model.TimestampFieldName()
	if !r.Has(field) {
		return nil, missingField(strategy, field, idx)
	}
	v := r.Get(field)
	if v == nil {
		return nil, &PlanningError{
			Code:        ErrCodeInvalidFieldValue,
			Strategy:    strategy,
			Field:       field,
			RecordIndex: idx,
			Message:     "event time is null",
		}
	}
	return v, nil
}
