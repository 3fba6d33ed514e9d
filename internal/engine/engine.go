package engine

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/envelope/internal/ir"
	"github.com/roach88/envelope/internal/planner"
	"github.com/roach88/envelope/internal/registry"
	"github.com/roach88/envelope/internal/store"
)

// Engine plans and applies batches against one Context.
//
// Thread-safety: Plan and Apply may be called concurrently; each call works
// on its own batch. The resolved planner is shared when cached.
type Engine struct {
	c *Context
}

// New creates an Engine over c.
func New(c *Context) *Engine {
	return &Engine{c: c}
}

// Context returns the engine's application context.
func (e *Engine) Context() *Context {
	return e.c
}

// Batch is the planned form of one batch.
type Batch struct {
	Strategy   string             `json:"strategy"`
	Planned    []ir.PlannedRecord `json:"planned"`
	Arriving   int                `json:"arriving"`
	Existing   int                `json:"existing"`
	Partitions int                `json:"partitions"`

	planner planner.Planner
}

// Counts returns the number of planned records per operation type.
func (b *Batch) Counts() map[ir.OperationType]int {
	counts := make(map[ir.OperationType]int)
	for _, pr := range b.Planned {
		counts[pr.Operation()]++
	}
	return counts
}

// BatchResult is the outcome of Apply.
type BatchResult struct {
	Batch    *Batch        `json:"batch"`
	Written  store.Result  `json:"written"`
	Duration time.Duration `json:"duration"`
}

// Plan computes the write plan for arriving.
//
// Records may be modified in place by the planner. When the planner
// requires existing records the context must have a store.
func (e *Engine) Plan(ctx context.Context, arriving []ir.Record) (*Batch, error) {
	p, err := e.c.Planner()
	if err != nil {
		return nil, err
	}
	strategy := e.c.Config.String(registry.OptionPlanner, "")

	var existing []ir.Record
	if p.RequiresExistingRecords() && len(arriving) > 0 {
		if e.c.Store == nil {
			return nil, &BatchError{
				Code:      ErrCodeStoreUnavailable,
				Message:   "planner requires existing records but no store is open",
				Strategy:  strategy,
				Partition: -1,
			}
		}
		if err := checkKeys(strategy, e.c.Model, arriving); err != nil {
			return nil, err
		}
		existing, err = e.c.Store.Existing(ctx, e.c.App.Dataset, e.c.Model, arriving)
		if err != nil {
			return nil, &BatchError{
				Code:      ErrCodeExistingFailed,
				Message:   "fetch existing records",
				Strategy:  strategy,
				Partition: -1,
				Err:       err,
			}
		}
	}

	n := max(e.c.App.Parallelism(), 1)
	var parts []partition
	if p.RequiresKeyColocation() {
		parts, err = partitionByKey(strategy, arriving, existing, e.c.Model, n)
		if err != nil {
			return nil, err
		}
	} else {
		parts = partitionByRange(arriving, existing, n)
	}

	outputs := make([][]ir.PlannedRecord, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)
	for i, part := range parts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			planned, err := p.PlanOperations(part.arriving, part.existing, e.c.Model)
			if err != nil {
				return remapIndex(err, part.index, strategy, i)
			}
			outputs[i] = planned
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := &Batch{
		Strategy:   strategy,
		Arriving:   len(arriving),
		Existing:   len(existing),
		Partitions: len(parts),
		planner:    p,
	}
	for _, out := range outputs {
		batch.Planned = append(batch.Planned, out...)
	}
	return batch, nil
}

// Apply plans arriving and writes the plan in one transaction.
func (e *Engine) Apply(ctx context.Context, arriving []ir.Record) (*BatchResult, error) {
	if e.c.Store == nil {
		return nil, &BatchError{
			Code:      ErrCodeStoreUnavailable,
			Message:   "apply needs an open store",
			Partition: -1,
		}
	}

	start := time.Now()
	batch, err := e.Plan(ctx, arriving)
	if err != nil {
		return nil, err
	}

	identity := planner.IdentityFields(batch.planner, e.c.Model)
	written, err := e.c.Store.Apply(ctx, e.c.App.Dataset, identity, e.c.Model,
		batch.Planned, batch.planner.EmittedOperationTypes())
	if err != nil {
		return nil, &BatchError{
			Code:      ErrCodeWriteFailed,
			Message:   "apply plan",
			Strategy:  batch.Strategy,
			Partition: -1,
			Err:       err,
		}
	}

	res := &BatchResult{Batch: batch, Written: written, Duration: time.Since(start)}
	e.c.Logger.Info("batch applied",
		"strategy", batch.Strategy,
		"dataset", e.c.App.Dataset,
		"arriving", batch.Arriving,
		"existing", batch.Existing,
		"partitions", batch.Partitions,
		"inserted", written.Inserted,
		"updated", written.Updated,
		"deleted", written.Deleted,
		"upserted", written.Upserted,
		"skipped", written.Skipped,
		"duration", res.Duration)
	return res, nil
}

// remapIndex rewrites a planning error's record index from the partition
// position to the batch position.
func remapIndex(err error, index []int, strategy string, part int) error {
	var pe *planner.PlanningError
	if errors.As(err, &pe) {
		mapped := *pe
		if pe.RecordIndex >= 0 && pe.RecordIndex < len(index) {
			mapped.RecordIndex = index[pe.RecordIndex]
		}
		return &BatchError{
			Code:      ErrCodePlanningFailed,
			Message:   "plan partition",
			Strategy:  strategy,
			Partition: part,
			Err:       &mapped,
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &BatchError{
		Code:      ErrCodePlanningFailed,
		Message:   "plan partition",
		Strategy:  strategy,
		Partition: part,
		Err:       err,
	}
}
