package planner

import (
	"errors"

	"github.com/roach88/envelope/internal/ir"
)

// UpsertPlanner plans one UPSERT per distinct key in the batch.
//
// When several arriving records share a key, the one with the greatest
// event time wins; ties, and models without an event-time field, go to the
// later record in input order. Output follows the order in which each key
// first appears.
type UpsertPlanner struct {
	base
}

// NewUpsertPlanner returns an UpsertPlanner. It has no options of its own.
func NewUpsertPlanner(cfg Config, opts ...Option) (*UpsertPlanner, error) {
	return &UpsertPlanner{base: newBase(NameUpsert, cfg, opts)}, nil
}

// PlanOperations collapses arriving records per key. existing is never read.
func (p *UpsertPlanner) PlanOperations(arriving, _ []ir.Record, model *ir.RecordModel) ([]ir.PlannedRecord, error) {
	if err := p.requireModel(model); err != nil {
		return nil, err
	}
	if err := p.requireRecords(arriving); err != nil {
		return nil, err
	}

	type winner struct {
		rec ir.Record
		ts  any
	}
	var order []string
	winners := make(map[string]*winner, len(arriving))

	for i, r := range arriving {
		h, err := ir.KeyHash(model, r)
		if err != nil {
			return nil, p.keyError(err, i)
		}

		var ts any
		if model.HasTimestampField() {
			if ts, err = eventTime(p.name, r, model, i); err != nil {
				return nil, err
			}
		}

		cur, ok := winners[h]
		if !ok {
			order = append(order, h)
			winners[h] = &winner{rec: r, ts: ts}
			continue
		}
		if ts != nil {
			c, err := compareEventTimes(ts, cur.ts)
			if err != nil {
				return nil, &PlanningError{
					Code:        ErrCodeInvalidFieldValue,
					Strategy:    p.name,
					Field:       model.TimestampFieldName(),
					RecordIndex: i,
					Message:     err.Error(),
				}
			}
			if c < 0 {
				continue
			}
		}
		cur.rec, cur.ts = r, ts
	}

	planned := make([]ir.PlannedRecord, 0, len(order))
	for _, h := range order {
		r := winners[h].rec
		p.stampLastUpdated(r, model)
		planned = append(planned, ir.NewPlannedRecord(r, ir.OpUpsert))
	}
	return planned, nil
}

// RequiresExistingRecords is false: the writer resolves insert-or-update.
func (p *UpsertPlanner) RequiresExistingRecords() bool {
	return false
}

// RequiresKeyColocation is true: same-key records must meet to be collapsed.
func (p *UpsertPlanner) RequiresKeyColocation() bool {
	return true
}

// EmittedOperationTypes is {UPSERT}.
func (p *UpsertPlanner) EmittedOperationTypes() ir.OperationSet {
	return ir.NewOperationSet(ir.OpUpsert)
}

func (b *base) keyError(err error, idx int) error {
	var mf *ir.MissingFieldError
	if errors.As(err, &mf) {
		return missingField(b.name, mf.Field, idx)
	}
	return &PlanningError{
		Code:        ErrCodeInvalidFieldValue,
		Strategy:    b.name,
		RecordIndex: idx,
		Message:     err.Error(),
	}
}
