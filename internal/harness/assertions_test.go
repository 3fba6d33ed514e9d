package harness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/envelope/internal/ir"
)

func testResult() *Result {
	r := NewResult()
	r.AddStep(StepTrace{Phase: PhaseSetup, Step: 0, Planned: []ir.PlannedRecord{
		ir.NewPlannedRecord(ir.Record{"id": "s"}, ir.OpInsert),
	}})
	r.AddStep(StepTrace{Phase: PhaseFlow, Step: 0, Planned: []ir.PlannedRecord{
		ir.NewPlannedRecord(ir.Record{"id": "a"}, ir.OpUpdate),
		ir.NewPlannedRecord(ir.Record{"id": "b"}, ir.OpInsert),
		ir.NewPlannedRecord(ir.Record{"id": "c"}, ir.OpInsert),
	}})
	r.State = []ir.Record{
		{"id": "a", "n": json.Number("2"), "tags": []any{"x"}},
		{"id": "b", "n": json.Number("2.5")},
	}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	msgs := EvaluateAssertions(testResult(), []Assertion{
		{Type: AssertRowCount, Count: 2},
		{Type: AssertRowContains, Where: map[string]any{"id": "a", "n": 2}},
		{Type: AssertRowContains, Where: map[string]any{"n": 2.5}},
		{Type: AssertRowContains, Where: map[string]any{"tags": []any{"x"}}},
		{Type: AssertPlanCount, Step: 0, Op: "INSERT", Count: 2},
		{Type: AssertPlanCount, Step: 0, Op: "DELETE", Count: 0},
	})
	assert.Empty(t, msgs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	msgs := EvaluateAssertions(testResult(), []Assertion{
		{Type: AssertRowCount, Count: 3},
		{Type: AssertRowContains, Where: map[string]any{"id": "a", "n": 3}},
		{Type: AssertRowContains, Where: map[string]any{"missing": "x"}},
		{Type: AssertPlanCount, Step: 0, Op: "UPDATE", Count: 2},
		{Type: AssertPlanCount, Step: 1, Op: "UPDATE", Count: 0},
		{Type: "bogus"},
	})
	require.Len(t, msgs, 6)
	assert.Contains(t, msgs[0], "Expected: 3 rows")
	assert.Contains(t, msgs[0], "Actual: 2 rows")
	assert.Contains(t, msgs[1], "no matching row")
	assert.Contains(t, msgs[2], "no matching row")
	assert.Contains(t, msgs[3], "Actual: 1 UPDATE")
	assert.Contains(t, msgs[4], "flow step 1 was not executed")
	assert.Contains(t, msgs[5], `unknown assertion type "bogus"`)
}

func TestAssertionError_ListsStoredRows(t *testing.T) {
	err := &AssertionError{
		Type:     AssertRowCount,
		Expected: "1 rows",
		Actual:   "2 rows",
		State:    []ir.Record{{"b": 1, "a": "x"}},
	}
	assert.Contains(t, err.Error(), `[1] {"a":"x","b":1}`)
}

func TestSnapshot_Marshal(t *testing.T) {
	s := Snapshot{
		ScenarioName: "snap",
		Flow: []StepTrace{{
			Phase:    PhaseFlow,
			Step:     0,
			Strategy: "insert-only",
			Planned:  []ir.PlannedRecord{ir.NewPlannedRecord(ir.Record{"id": "a"}, ir.OpInsert)},
		}},
		State: []ir.Record{{"id": "a"}},
	}
	b, err := s.Marshal()
	require.NoError(t, err)
	assert.Equal(t,
		`{"flow":[{"planned":[{"op":"INSERT","record":{"id":"a"}}],"step":0,"strategy":"insert-only",`+
			`"written":{"deleted":0,"inserted":0,"skipped":0,"updated":0,"upserted":0}}],`+
			`"scenario":"snap","state":[{"id":"a"}]}`+"\n",
		string(b))
}
