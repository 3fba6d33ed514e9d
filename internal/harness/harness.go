package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/envelope/internal/config"
	"github.com/roach88/envelope/internal/engine"
	"github.com/roach88/envelope/internal/ir"
	"github.com/roach88/envelope/internal/planner"
	"github.com/roach88/envelope/internal/store"
	"github.com/roach88/envelope/internal/testutil"
)

// Harness executes one scenario against its own store and engine.
type Harness struct {
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a scenario and returns its result.
//
// Execution:
//  1. Flatten the scenario config and open a fresh in-memory store
//  2. Build the engine context with a fixed clock and sequential keys
//  3. Apply setup batches, failing the run if any of them fails
//  4. Apply flow batches, checking each expect clause
//  5. Read back the dataset and evaluate assertions
//
// An error is returned only when the scenario cannot be executed; failed
// expectations and assertions are reported in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg := planner.Config{}
	if err := config.Flatten("", scenario.Config, cfg); err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}
	now, err := scenario.clockTime()
	if err != nil {
		return nil, fmt.Errorf("scenario clock: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(ctx, store.DriverSQLite, ":memory:", store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	c, err := engine.NewContext(cfg,
		engine.WithStore(st),
		engine.WithLogger(logger),
		engine.WithPlannerOptions(
			planner.WithClock(testutil.NewFakeClock(now)),
			planner.WithKeyGenerator(testutil.NewSequenceKeyGenerator(scenario.keyPrefix())),
		))
	if err != nil {
		return nil, fmt.Errorf("failed to build context: %w", err)
	}
	defer c.Close()

	h := &Harness{engine: engine.New(c), logger: logger}
	result := NewResult()

	for i, step := range scenario.Setup {
		trace, err := h.apply(ctx, PhaseSetup, i, step)
		if err != nil {
			return nil, fmt.Errorf("setup step %d: %w", i, err)
		}
		result.AddStep(trace)
	}

	for i, step := range scenario.Flow {
		trace, err := h.apply(ctx, PhaseFlow, i, step)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			trace.Error = ErrorCode(err)
		}
		result.AddStep(trace)
		for _, msg := range checkExpect(i, step.Expect, trace, err) {
			result.AddError(msg)
		}
	}

	state, err := st.Records(ctx, c.App.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.State = state

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// apply runs one batch. The returned trace is valid even when err is set.
func (h *Harness) apply(ctx context.Context, phase string, i int, step Step) (StepTrace, error) {
	trace := StepTrace{Phase: phase, Step: i, Planned: []ir.PlannedRecord{}}
	res, err := h.engine.Apply(ctx, step.records())
	if err != nil {
		return trace, err
	}
	trace.Strategy = res.Batch.Strategy
	if res.Batch.Planned != nil {
		trace.Planned = res.Batch.Planned
	}
	trace.Written = res.Written

	h.logger.Info("step applied",
		"phase", phase,
		"step", i,
		"planned", len(trace.Planned),
		"written", res.Written.Total())
	return trace, nil
}

// checkExpect compares a flow step's outcome with its expect clause.
func checkExpect(i int, expect *ExpectClause, trace StepTrace, err error) []string {
	want := ""
	if expect != nil {
		want = expect.Error
	}
	switch {
	case err != nil && want == "":
		return []string{fmt.Sprintf("flow[%d]: unexpected error: %v", i, err)}
	case err == nil && want != "":
		return []string{fmt.Sprintf("flow[%d]: expected error %s, batch succeeded", i, want)}
	case err != nil && trace.Error != want:
		return []string{fmt.Sprintf("flow[%d]: expected error %s, got %s: %v", i, want, trace.Error, err)}
	case err != nil || expect == nil:
		return nil
	}

	var msgs []string
	counts := trace.Counts()
	for _, op := range slices.Sorted(maps.Keys(expect.Counts)) {
		if got := counts[ir.OperationType(op)]; got != expect.Counts[op] {
			msgs = append(msgs, fmt.Sprintf("flow[%d]: expected %d %s, planned %d", i, expect.Counts[op], op, got))
		}
	}
	return msgs
}

// ErrorCode returns the most specific code carried by err: the planner
// error code when there is one, then the batch error code.
func ErrorCode(err error) string {
	var pe *planner.PlanningError
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	var ce *planner.ConfigurationError
	if errors.As(err, &ce) {
		return string(ce.Code)
	}
	if store.IsRejectedOperation(err) {
		return "REJECTED_OPERATION"
	}
	if errors.Is(err, store.ErrRowNotFound) {
		return "ROW_NOT_FOUND"
	}
	var be *engine.BatchError
	if errors.As(err, &be) {
		return string(be.Code)
	}
	return "ERROR"
}
