package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/envelope/internal/ir"
)

// Snapshot is the golden form of a scenario run: the flow trace and the
// final stored state. Setup steps are omitted; their effect shows in State.
type Snapshot struct {
	ScenarioName string
	Flow         []StepTrace
	State        []ir.Record
}

// canonicalMap converts the snapshot to a map[string]any for canonical
// JSON serialization, which only handles plain maps, slices and scalars.
func (s *Snapshot) canonicalMap() map[string]any {
	flow := make([]any, len(s.Flow))
	for i, step := range s.Flow {
		planned := make([]any, len(step.Planned))
		for j, pr := range step.Planned {
			planned[j] = pr.Canonical()
		}
		m := map[string]any{
			"step":    step.Step,
			"planned": planned,
			"written": map[string]any{
				"inserted": step.Written.Inserted,
				"updated":  step.Written.Updated,
				"deleted":  step.Written.Deleted,
				"upserted": step.Written.Upserted,
				"skipped":  step.Written.Skipped,
			},
		}
		if step.Strategy != "" {
			m["strategy"] = step.Strategy
		}
		if step.Error != "" {
			m["error"] = step.Error
		}
		flow[i] = m
	}

	state := make([]any, len(s.State))
	for i, r := range s.State {
		state[i] = map[string]any(r)
	}

	return map[string]any{
		"scenario": s.ScenarioName,
		"flow":     flow,
		"state":    state,
	}
}

// Marshal renders the snapshot as canonical JSON followed by a newline.
func (s *Snapshot) Marshal() ([]byte, error) {
	b, err := ir.MarshalCanonical(s.canonicalMap())
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// RunWithGolden executes a scenario, fails t on any expectation or
// assertion failure, and compares the snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Flow:         result.FlowSteps(),
		State:        result.State,
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
