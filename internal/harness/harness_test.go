package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/envelope/internal/ir"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)
		t.Run(scenario.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRun_InsertOnly(t *testing.T) {
	scenario := &Scenario{
		Name:        "inline_insert",
		Description: "inline",
		Config: map[string]any{
			"planner":          "insert-only",
			"model.key.fields": []any{"id"},
		},
		Flow: []Step{
			{Records: []map[string]any{{"id": "a"}, {"id": "b"}}},
		},
		Assertions: []Assertion{
			{Type: AssertRowCount, Count: 2},
			{Type: AssertPlanCount, Step: 0, Op: "INSERT", Count: 2},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, PhaseFlow, result.Trace[0].Phase)
	assert.Equal(t, "insert-only", result.Trace[0].Strategy)
	assert.Equal(t, 2, result.Trace[0].Written.Inserted)
	assert.Len(t, result.State, 2)
}

func TestRun_SetupSteps(t *testing.T) {
	scenario := &Scenario{
		Name:        "setup",
		Description: "setup",
		Config: map[string]any{
			"planner": "upsert",
			"model":   map[string]any{"key": map[string]any{"fields": []any{"id"}}},
		},
		Setup: []Step{{Records: []map[string]any{{"id": "a", "v": 1}}}},
		Flow:  []Step{{Records: []map[string]any{{"id": "a", "v": 2}}}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, PhaseSetup, result.Trace[0].Phase)
	assert.Len(t, result.FlowSteps(), 1)

	require.Len(t, result.State, 1)
	assert.True(t, matchFields(result.State[0], map[string]any{"id": "a", "v": 2}))
}

func TestRun_UnexpectedErrorFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected",
		Description: "unexpected",
		Config: map[string]any{
			"planner":          "insert-only",
			"key.uuid":         true,
			"model.key.fields": "id",
		},
		Flow: []Step{{Records: []map[string]any{{"v": 1}}}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
	assert.Equal(t, "MISSING_FIELD", result.Trace[0].Error)
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing_error",
		Description: "missing error",
		Config: map[string]any{
			"planner":          "insert-only",
			"model.key.fields": "id",
		},
		Flow: []Step{{
			Records: []map[string]any{{"id": "a"}},
			Expect:  &ExpectClause{Error: "MISSING_FIELD"},
		}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "batch succeeded")
}

func TestRun_CountMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "counts",
		Description: "counts",
		Config: map[string]any{
			"planner":          "insert-only",
			"model.key.fields": "id",
		},
		Flow: []Step{{
			Records: []map[string]any{{"id": "a"}},
			Expect:  &ExpectClause{Counts: map[string]int{"INSERT": 2}},
		}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"flow[0]: expected 2 INSERT, planned 1"}, result.Errors)
}

func TestRun_SetupFailureAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "setup_fails",
		Description: "setup fails",
		Config: map[string]any{
			"planner":          "insert-only",
			"model.key.fields": "id",
		},
		// Same key twice: the second insert conflicts with the first.
		Setup: []Step{{Records: []map[string]any{{"id": "a"}, {"id": "a"}}}},
		Flow:  []Step{{Records: []map[string]any{{"id": "b"}}}},
	}

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup step 0")
}

func TestRun_InvalidConfig(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_config",
		Description: "bad config",
		Config:      map[string]any{"planner": "no-such-strategy", "model.key.fields": "id"},
		Flow:        []Step{{Records: []map[string]any{{"id": "a"}}}},
	}

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNKNOWN_STRATEGY")
}

func TestRun_FixedClockAndKeys(t *testing.T) {
	scenario := &Scenario{
		Name:        "fixed",
		Description: "fixed",
		Clock:       "2030-06-07T08:09:10.5Z",
		KeyPrefix:   "row",
		Config: map[string]any{
			"planner":                  "insert-only",
			"key.uuid":                 "true",
			"model.key.fields":         "id",
			"model.last.updated.field": "seen",
		},
		Flow: []Step{{Records: []map[string]any{{"id": ""}, {"id": ""}}}},
	}

	first, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	want := []ir.Record{
		{"id": "row-1", "seen": "2030-06-07T08:09:10.500Z"},
		{"id": "row-2", "seen": "2030-06-07T08:09:10.500Z"},
	}
	for _, res := range []*Result{first, second} {
		require.Len(t, res.State, 2)
		for i := range want {
			assert.True(t, res.State[i].EqualIgnoring(want[i]), "row %d: %v", i, res.State[i])
		}
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "ERROR", ErrorCode(assert.AnError))
}
