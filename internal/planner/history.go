package planner

import (
	"slices"

	"github.com/roach88/envelope/internal/ir"
)

// Options recognised by EventTimeHistoryPlanner.
const (
	OptionEffectiveFromField = "history.effective.from.field"
	OptionEffectiveToField   = "history.effective.to.field"
	OptionCurrentFlagField   = "history.current.flag.field"
	OptionCurrentFlagYes     = "history.current.flag.yes"
	OptionCurrentFlagNo      = "history.current.flag.no"
	OptionFarFuture          = "history.far.future"
)

// DefaultFarFuture closes the open-ended version when event times are strings.
const DefaultFarFuture = "9999-12-31T23:59:59.999Z"

// EventTimeHistoryPlanner keeps every version of a key, ordered by event time.
//
// Each version carries an effective range [from, to) and a current flag.
// from is the version's event time, to is the next version's event time, or
// the far-future bound for the latest version, which alone is current.
//
// Per key, arriving records are merged into the existing versions:
//   - same event time and same values as a known version: dropped
//   - same event time, different values: that version takes the new values
//   - otherwise: a new version is inserted on the timeline
//
// New versions are planned as INSERT. Existing versions whose values, range
// or flag changed are planned as UPDATE. Untouched versions are not planned.
type EventTimeHistoryPlanner struct {
	base
	fromField string
	toField   string
	flagField string
	flagYes   string
	flagNo    string
	farFuture string
}

// NewEventTimeHistoryPlanner parses cfg once and returns the planner.
func NewEventTimeHistoryPlanner(cfg Config, opts ...Option) (*EventTimeHistoryPlanner, error) {
	p := &EventTimeHistoryPlanner{base: newBase(NameEventTimeHistory, cfg, opts)}
	p.fromField = p.cfg.String(OptionEffectiveFromField, "effective_from")
	p.toField = p.cfg.String(OptionEffectiveToField, "effective_to")
	p.flagField = p.cfg.String(OptionCurrentFlagField, "current_flag")
	p.flagYes = p.cfg.String(OptionCurrentFlagYes, "Y")
	p.flagNo = p.cfg.String(OptionCurrentFlagNo, "N")
	p.farFuture = p.cfg.String(OptionFarFuture, DefaultFarFuture)

	fields := []string{p.fromField, p.toField, p.flagField}
	for i, f := range fields {
		if f == "" || slices.Contains(fields[:i], f) {
			return nil, &ConfigurationError{
				Code:     ErrCodeInvalidOption,
				Strategy: p.name,
				Message:  "effective from, effective to and current flag fields must be distinct and non-empty",
			}
		}
	}
	if p.flagYes == p.flagNo {
		return nil, &ConfigurationError{
			Code:     ErrCodeInvalidOption,
			Strategy: p.name,
			Option:   OptionCurrentFlagYes,
			Message:  "current flag values must differ",
		}
	}
	return p, nil
}

// version is one entry on a key's timeline during planning.
type version struct {
	rec      ir.Record
	ts       any
	original ir.Record // nil for versions planned in this call
	changed  bool
}

// PlanOperations plans history versions per key. Output is grouped by key
// in order of first appearance among arriving records, each group in event
// time order.
func (p *EventTimeHistoryPlanner) PlanOperations(arriving, existing []ir.Record, model *ir.RecordModel) ([]ir.PlannedRecord, error) {
	if err := p.requireModel(model); err != nil {
		return nil, err
	}
	if err := p.requireRecords(arriving); err != nil {
		return nil, err
	}
	if !model.HasTimestampField() {
		return nil, &PlanningError{
			Code:        ErrCodeUnsupportedModel,
			Strategy:    p.name,
			RecordIndex: -1,
			Message:     "event-time history requires a timestamp field",
		}
	}

	type group struct {
		arriving []int
		existing []ir.Record
	}
	var order []string
	groups := make(map[string]*group)

	for i, r := range arriving {
		h, err := ir.KeyHash(model, r)
		if err != nil {
			return nil, p.keyError(err, i)
		}
		g, ok := groups[h]
		if !ok {
			g = &group{}
			groups[h] = g
			order = append(order, h)
		}
		g.arriving = append(g.arriving, i)
	}

	for _, r := range existing {
		h, err := ir.KeyHash(model, r)
		if err != nil {
			return nil, p.keyError(err, -1)
		}
		// Existing versions of keys that did not arrive are left alone.
		if g, ok := groups[h]; ok {
			g.existing = append(g.existing, r)
		}
	}

	var planned []ir.PlannedRecord
	for _, h := range order {
		g := groups[h]
		out, err := p.planKey(arriving, g.arriving, g.existing, model)
		if err != nil {
			return nil, err
		}
		planned = append(planned, out...)
	}
	return planned, nil
}

func (p *EventTimeHistoryPlanner) planKey(arriving []ir.Record, idxs []int, existing []ir.Record, model *ir.RecordModel) ([]ir.PlannedRecord, error) {
	var timeline []*version
	for _, r := range existing {
		ts, err := eventTime(p.name, r, model, -1)
		if err != nil {
			return nil, err
		}
		// Existing records belong to the caller; plan against copies.
		timeline = append(timeline, &version{rec: r.Clone(), ts: ts, original: r})
	}
	if err := p.sortTimeline(timeline, model, -1); err != nil {
		return nil, err
	}

	incoming := make([]*version, 0, len(idxs))
	for _, i := range idxs {
		ts, err := eventTime(p.name, arriving[i], model, i)
		if err != nil {
			return nil, err
		}
		incoming = append(incoming, &version{rec: arriving[i], ts: ts})
	}
	if err := p.sortTimeline(incoming, model, idxs[0]); err != nil {
		return nil, err
	}

	ignore := p.bookkeepingFields(model)
	for _, in := range incoming {
		pos, found, err := p.search(timeline, in.ts)
		if err != nil {
			return nil, p.invalidTime(model, err)
		}
		if found {
			cur := timeline[pos]
			if cur.rec.EqualIgnoring(in.rec, ignore...) {
				p.logger.Debug("dropping duplicate version", "strategy", p.name)
				continue
			}
			if cur.original == nil {
				timeline[pos] = in
				continue
			}
			for k, v := range in.rec {
				if !slices.Contains(ignore, k) {
					cur.rec.Set(k, v)
				}
			}
			cur.changed = true
			continue
		}
		timeline = slices.Insert(timeline, pos, in)
	}

	planned := make([]ir.PlannedRecord, 0, len(timeline))
	for i, v := range timeline {
		var to any
		flag := p.flagNo
		if i+1 < len(timeline) {
			to = timeline[i+1].ts
		} else {
			to = farFutureFor(v.ts, p.farFuture)
			flag = p.flagYes
		}
		v.rec.Set(p.fromField, v.ts)
		v.rec.Set(p.toField, to)
		v.rec.Set(p.flagField, flag)

		switch {
		case v.original == nil:
			p.stampLastUpdated(v.rec, model)
			planned = append(planned, ir.NewPlannedRecord(v.rec, ir.OpInsert))
		case v.changed || !v.rec.EqualIgnoring(v.original, model.LastUpdatedFieldName()):
			p.stampLastUpdated(v.rec, model)
			planned = append(planned, ir.NewPlannedRecord(v.rec, ir.OpUpdate))
		}
	}
	return planned, nil
}

// bookkeepingFields are the fields this planner owns; they never count as
// a change of values.
func (p *EventTimeHistoryPlanner) bookkeepingFields(model *ir.RecordModel) []string {
	fields := []string{p.fromField, p.toField, p.flagField}
	if model.HasLastUpdatedField() {
		fields = append(fields, model.LastUpdatedFieldName())
	}
	return fields
}

func (p *EventTimeHistoryPlanner) sortTimeline(vs []*version, model *ir.RecordModel, idx int) error {
	var sortErr error
	slices.SortStableFunc(vs, func(a, b *version) int {
		c, err := compareEventTimes(a.ts, b.ts)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c
	})
	if sortErr != nil {
		pe := p.invalidTime(model, sortErr)
		pe.RecordIndex = idx
		return pe
	}
	return nil
}

// search finds ts on the sorted timeline, returning the insert position.
func (p *EventTimeHistoryPlanner) search(timeline []*version, ts any) (int, bool, error) {
	var searchErr error
	pos, found := slices.BinarySearchFunc(timeline, ts, func(v *version, t any) int {
		c, err := compareEventTimes(v.ts, t)
		if err != nil && searchErr == nil {
			searchErr = err
		}
		return c
	})
	return pos, found, searchErr
}

func (p *EventTimeHistoryPlanner) invalidTime(model *ir.RecordModel, err error) *PlanningError {
	return &PlanningError{
		Code:        ErrCodeInvalidFieldValue,
		Strategy:    p.name,
		Field:       model.TimestampFieldName(),
		RecordIndex: -1,
		Message:     err.Error(),
	}
}

// RequiresExistingRecords is true: versions are placed among stored ones.
func (p *EventTimeHistoryPlanner) RequiresExistingRecords() bool {
	return true
}

// RequiresKeyColocation is true.
func (p *EventTimeHistoryPlanner) RequiresKeyColocation() bool {
	return true
}

// EmittedOperationTypes is {INSERT, UPDATE}.
func (p *EventTimeHistoryPlanner) EmittedOperationTypes() ir.OperationSet {
	return ir.NewOperationSet(ir.OpInsert, ir.OpUpdate)
}

// IdentityFields addresses a stored version by key plus effective-from.
func (p *EventTimeHistoryPlanner) IdentityFields(model *ir.RecordModel) []string {
	return append(model.KeyFieldNames(), p.fromField)
}
