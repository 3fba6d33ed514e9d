package planner

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/envelope/internal/ir"
	"github.com/roach88/envelope/internal/testutil"
)

func newHistory(t *testing.T, cfg Config, opts ...Option) *EventTimeHistoryPlanner {
	t.Helper()
	p, err := NewEventTimeHistoryPlanner(cfg, opts...)
	require.NoError(t, err)
	return p
}

func historyModel() *ir.RecordModel {
	return ir.MustRecordModel([]string{"id"}, ir.WithTimestampField("ts"))
}

func histVersion(id, ts string, v any, to, flag string) ir.Record {
	return ir.Record{
		"id": id, "ts": ts, "v": v,
		"effective_from": ts, "effective_to": to, "current_flag": flag,
	}
}

func TestHistory_Contract(t *testing.T) {
	p := newHistory(t, nil)
	model := historyModel()

	assert.True(t, p.RequiresExistingRecords())
	assert.True(t, p.RequiresKeyColocation())
	assert.Equal(t, ir.NewOperationSet(ir.OpInsert, ir.OpUpdate), p.EmittedOperationTypes())
	assert.Equal(t, []string{"id", "effective_from"}, IdentityFields(p, model))
}

func TestHistory_NewKeyBuildsTimeline(t *testing.T) {
	p := newHistory(t, nil)
	arriving := []ir.Record{
		{"id": "k1", "ts": "2024-01-02", "v": 2},
		{"id": "k1", "ts": "2024-01-01", "v": 1},
	}

	planned, err := p.PlanOperations(arriving, nil, historyModel())
	require.NoError(t, err)
	require.Len(t, planned, 2)

	assert.Equal(t, ir.OpInsert, planned[0].Operation())
	assert.Equal(t, histVersion("k1", "2024-01-01", 1, "2024-01-02", "N"), planned[0].Record())
	assert.Equal(t, ir.OpInsert, planned[1].Operation())
	assert.Equal(t, histVersion("k1", "2024-01-02", 2, DefaultFarFuture, "Y"), planned[1].Record())
}

func TestHistory_NewerVersionClosesCurrent(t *testing.T) {
	p := newHistory(t, nil)
	existing := []ir.Record{histVersion("k1", "2024-01-01", 1, DefaultFarFuture, "Y")}
	arriving := []ir.Record{{"id": "k1", "ts": "2024-02-01", "v": 2}}

	planned, err := p.PlanOperations(arriving, existing, historyModel())
	require.NoError(t, err)
	require.Len(t, planned, 2)

	assert.Equal(t, ir.OpUpdate, planned[0].Operation())
	assert.Equal(t, histVersion("k1", "2024-01-01", 1, "2024-02-01", "N"), planned[0].Record())
	assert.Equal(t, ir.OpInsert, planned[1].Operation())
	assert.Equal(t, histVersion("k1", "2024-02-01", 2, DefaultFarFuture, "Y"), planned[1].Record())

	assert.Equal(t, histVersion("k1", "2024-01-01", 1, DefaultFarFuture, "Y"), existing[0],
		"existing records must not be modified")
}

func TestHistory_LateArrivalInsertsPastVersion(t *testing.T) {
	p := newHistory(t, nil)
	existing := []ir.Record{histVersion("k1", "2024-02-01", 2, DefaultFarFuture, "Y")}
	arriving := []ir.Record{{"id": "k1", "ts": "2024-01-01", "v": 1}}

	planned, err := p.PlanOperations(arriving, existing, historyModel())
	require.NoError(t, err)
	require.Len(t, planned, 1, "the current version is unchanged")

	assert.Equal(t, ir.OpInsert, planned[0].Operation())
	assert.Equal(t, histVersion("k1", "2024-01-01", 1, "2024-02-01", "N"), planned[0].Record())
}

func TestHistory_DuplicateDropped(t *testing.T) {
	p := newHistory(t, nil)
	existing := []ir.Record{histVersion("k1", "2024-01-01", 1, DefaultFarFuture, "Y")}
	arriving := []ir.Record{
		{"id": "k1", "ts": "2024-01-01", "v": 1},
		{"id": "k1", "ts": "2024-01-01", "v": 1},
	}

	planned, err := p.PlanOperations(arriving, existing, historyModel())
	require.NoError(t, err)
	assert.Empty(t, planned)
}

func TestHistory_SameTimeNewValuesUpdates(t *testing.T) {
	p := newHistory(t, nil)
	existing := []ir.Record{histVersion("k1", "2024-01-01", 1, DefaultFarFuture, "Y")}
	arriving := []ir.Record{{"id": "k1", "ts": "2024-01-01", "v": 9}}

	planned, err := p.PlanOperations(arriving, existing, historyModel())
	require.NoError(t, err)
	require.Len(t, planned, 1)

	assert.Equal(t, ir.OpUpdate, planned[0].Operation())
	assert.Equal(t, histVersion("k1", "2024-01-01", 9, DefaultFarFuture, "Y"), planned[0].Record())
}

func TestHistory_IntegerEventTimes(t *testing.T) {
	p := newHistory(t, nil)
	arriving := []ir.Record{{"id": "k1", "ts": int64(100), "v": 1}}

	planned, err := p.PlanOperations(arriving, nil, historyModel())
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, int64(math.MaxInt64), planned[0].Record().Get("effective_to"))
}

func TestHistory_GroupsByFirstAppearance(t *testing.T) {
	p := newHistory(t, nil)
	existing := []ir.Record{histVersion("other", "2024-01-01", 1, DefaultFarFuture, "Y")}
	arriving := []ir.Record{
		{"id": "k2", "ts": "2024-01-01", "v": 1},
		{"id": "k1", "ts": "2024-01-01", "v": 1},
	}

	planned, err := p.PlanOperations(arriving, existing, historyModel())
	require.NoError(t, err)
	require.Len(t, planned, 2, "existing versions of other keys are not planned")
	assert.Equal(t, "k2", planned[0].Record().Get("id"))
	assert.Equal(t, "k1", planned[1].Record().Get("id"))
}

func TestHistory_CustomFieldsAndStamp(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	p := newHistory(t, Config{
		OptionEffectiveFromField: "valid_from",
		OptionEffectiveToField:   "valid_to",
		OptionCurrentFlagField:   "is_current",
		OptionCurrentFlagYes:     "true",
		OptionCurrentFlagNo:      "false",
	}, WithClock(clock))
	model := ir.MustRecordModel([]string{"id"},
		ir.WithTimestampField("ts"), ir.WithLastUpdatedField("updated_at"))

	planned, err := p.PlanOperations([]ir.Record{{"id": "k1", "ts": "2024-01-01"}}, nil, model)
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, ir.Record{
		"id": "k1", "ts": "2024-01-01",
		"valid_from": "2024-01-01", "valid_to": DefaultFarFuture, "is_current": "true",
		"updated_at": "2024-03-03T00:00:00.000Z",
	}, planned[0].Record())
}

func TestHistory_Errors(t *testing.T) {
	p := newHistory(t, nil)

	_, err := p.PlanOperations([]ir.Record{{"id": "k1"}}, nil, ir.MustRecordModel([]string{"id"}))
	var pe *PlanningError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeUnsupportedModel, pe.Code)

	_, err = p.PlanOperations([]ir.Record{{"id": "k1", "ts": 1}, {"id": "k1", "ts": "x"}}, nil, historyModel())
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeInvalidFieldValue, pe.Code)
	assert.Equal(t, "ts", pe.Field)

	_, err = p.PlanOperations([]ir.Record{{"ts": "2024-01-01"}}, nil, historyModel())
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeMissingField, pe.Code)
	assert.Equal(t, 0, pe.RecordIndex)

	_, err = p.PlanOperations([]ir.Record{{"id": "k1", "ts": "2024-01-01"}, nil}, nil, historyModel())
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeNilRecord, pe.Code)
	assert.Equal(t, 1, pe.RecordIndex)
}

func TestHistory_InvalidConfig(t *testing.T) {
	tests := []Config{
		{OptionEffectiveFromField: "same", OptionEffectiveToField: "same"},
		{OptionCurrentFlagField: ""},
		{OptionCurrentFlagYes: "X", OptionCurrentFlagNo: "X"},
	}
	for _, cfg := range tests {
		_, err := NewEventTimeHistoryPlanner(cfg)
		assert.True(t, IsConfigurationError(err), "config %v", cfg)
	}
}
