package planner

import (
	"log/slog"

	"github.com/roach88/envelope/internal/ir"
)

// Planner computes an ordered plan of write operations for a batch.
type Planner interface {
	// PlanOperations returns the plan for the arriving records. It may
	// overwrite fields of arriving records; the same record values flow into
	// the returned PlannedRecords. existing is read only.
	PlanOperations(arriving, existing []ir.Record, model *ir.RecordModel) ([]ir.PlannedRecord, error)

	// RequiresExistingRecords reports whether existing must hold all stored
	// records sharing a key with any arriving record.
	RequiresExistingRecords() bool

	// RequiresKeyColocation reports whether all same-key records must be
	// presented to the same PlanOperations call.
	RequiresKeyColocation() bool

	// EmittedOperationTypes returns every operation type this strategy may
	// produce. Writers reject planned records outside this set.
	EmittedOperationTypes() ir.OperationSet
}

// IdentityFielder is implemented by planners that keep more than one stored
// row per key. The returned fields address a single stored row.
type IdentityFielder interface {
	IdentityFields(model *ir.RecordModel) []string
}

// IdentityFields returns the fields addressing a stored row for p: the
// planner's own identity fields when it declares them, the key otherwise.
func IdentityFields(p Planner, model *ir.RecordModel) []string {
	if f, ok := p.(IdentityFielder); ok {
		return f.IdentityFields(model)
	}
	return model.KeyFieldNames()
}

// Option configures collaborators shared by every strategy.
type Option func(*base)

// WithClock sets the clock used for last-updated stamps.
func WithClock(c Clock) Option {
	return func(b *base) {
		b.clock = c
	}
}

// WithKeyGenerator sets the generator used for key substitution.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(b *base) {
		b.keys = g
	}
}

// WithLogger sets the logger used for construction-time warnings.
func WithLogger(l *slog.Logger) Option {
	return func(b *base) {
		b.logger = l
	}
}

// base holds configuration common to all strategies. It is immutable after
// construction.
type base struct {
	name   string
	cfg    Config
	clock  Clock
	keys   KeyGenerator
	logger *slog.Logger
}

func newBase(name string, cfg Config, opts []Option) base {
	b := base{
		name:   name,
		cfg:    cfg.Clone(),
		clock:  SystemClock{},
		keys:   UUIDGenerator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Name returns the strategy name.
func (b *base) Name() string {
	return b.name
}

// stampLastUpdated sets the model's last-updated field when it has one.
func (b *base) stampLastUpdated(r ir.Record, model *ir.RecordModel) {
	if model.HasLastUpdatedField() {
		r.Set(model.LastUpdatedFieldName(), CurrentTimestampString(b.clock))
	}
}

// requireRecords fails on the first nil arriving record. It runs before any
// record is modified.
func (b *base) requireRecords(arriving []ir.Record) error {
	for i, r := range arriving {
		if r == nil {
			return &PlanningError{
				Code:        ErrCodeNilRecord,
				Strategy:    b.name,
				RecordIndex: i,
				Message:     "record is nil",
			}
		}
	}
	return nil
}

func (b *base) requireModel(model *ir.RecordModel) error {
	if model == nil {
		return &PlanningError{
			Code:        ErrCodeUnsupportedModel,
			Strategy:    b.name,
			RecordIndex: -1,
			Message:     "record model is required",
		}
	}
	return nil
}
