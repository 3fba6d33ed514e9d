package planner

import (
	"fmt"
	"sync"

	"github.com/roach88/envelope/internal/ir"
)

// Strategy names of the built-in planners.
const (
	NameInsertOnly       = "insert-only"
	NameUpsert           = "upsert"
	NameEventTimeHistory = "event-time-history"
)

// Options recognised by InsertOnlyPlanner.
const (
	// OptionKeyUUID replaces the first key field with a generated UUID.
	OptionKeyUUID = "key.uuid"

	// OptionKeyUUIDComposite decides what key.uuid does with composite keys:
	// "first" overwrites only key field 0, "reject" fails planning.
	OptionKeyUUIDComposite = "key.uuid.composite"
)

// Composite key policies for OptionKeyUUIDComposite.
const (
	CompositeFirst  = "first"
	CompositeReject = "reject"
)

// InsertOnlyPlanner plans an INSERT for every arriving record. It is for
// append-only datasets: nothing is matched against existing state.
//
// With key.uuid enabled, key field 0 of every arriving record is overwritten
// with a fresh UUID, whatever it held before. Only that field is replaced;
// the remaining fields of a composite key pass through unchanged unless
// key.uuid.composite=reject.
type InsertOnlyPlanner struct {
	base
	setKeyToUUID    bool
	compositePolicy string
	compositeWarn   sync.Once
}

// NewInsertOnlyPlanner parses cfg once and returns the planner.
// Invalid option values yield a ConfigurationError.
func NewInsertOnlyPlanner(cfg Config, opts ...Option) (*InsertOnlyPlanner, error) {
	p := &InsertOnlyPlanner{base: newBase(NameInsertOnly, cfg, opts)}

	setKey, err := p.cfg.Bool(OptionKeyUUID, false)
	if err != nil {
		return nil, withStrategy(err, p.name)
	}
	p.setKeyToUUID = setKey

	switch policy := p.cfg.String(OptionKeyUUIDComposite, CompositeFirst); policy {
	case CompositeFirst, CompositeReject:
		p.compositePolicy = policy
	default:
		return nil, &ConfigurationError{
			Code:     ErrCodeInvalidOption,
			Strategy: p.name,
			Option:   OptionKeyUUIDComposite,
			Message:  fmt.Sprintf("expected %q or %q, got %q", CompositeFirst, CompositeReject, policy),
		}
	}

	return p, nil
}

// PlanOperations returns one INSERT per arriving record, in input order.
// existing is never read.
//
// Every record is checked before any record is modified, so a failing call
// leaves its input intact.
func (p *InsertOnlyPlanner) PlanOperations(arriving, _ []ir.Record, model *ir.RecordModel) ([]ir.PlannedRecord, error) {
	if err := p.requireModel(model); err != nil {
		return nil, err
	}
	if err := p.requireRecords(arriving); err != nil {
		return nil, err
	}

	if p.setKeyToUUID {
		if model.HasCompositeKey() {
			if p.compositePolicy == CompositeReject {
				return nil, &PlanningError{
					Code:        ErrCodeUnsupportedModel,
					Strategy:    p.name,
					RecordIndex: -1,
					Message:     fmt.Sprintf("key.uuid cannot fill composite key %v", model.KeyFieldNames()),
				}
			}
			p.compositeWarn.Do(func() {
				p.logger.Warn("key.uuid replaces only the first field of a composite key",
					"strategy", p.name, "key_fields", model.KeyFieldNames())
			})
		}
		keyField := model.FirstKeyFieldName()
		for i, r := range arriving {
			if !r.Has(keyField) {
				return nil, missingField(p.name, keyField, i)
			}
		}
	}

	planned := make([]ir.PlannedRecord, 0, len(arriving))
	for _, r := range arriving {
		if p.setKeyToUUID {
			r.Set(model.FirstKeyFieldName(), p.keys.Generate())
		}
		p.stampLastUpdated(r, model)
		planned = append(planned, ir.NewPlannedRecord(r, ir.OpInsert))
	}

	return planned, nil
}

// RequiresExistingRecords is always false.
func (p *InsertOnlyPlanner) RequiresExistingRecords() bool {
	return false
}

// RequiresKeyColocation is always false.
func (p *InsertOnlyPlanner) RequiresKeyColocation() bool {
	return false
}

// EmittedOperationTypes is always {INSERT}.
func (p *InsertOnlyPlanner) EmittedOperationTypes() ir.OperationSet {
	return ir.NewOperationSet(ir.OpInsert)
}

// withStrategy attaches the strategy name to a ConfigurationError.
func withStrategy(err error, strategy string) error {
	if ce, ok := err.(*ConfigurationError); ok && ce.Strategy == "" {
		ce.Strategy = strategy
	}
	return err
}
