package engine

import (
	"errors"
	"hash/fnv"

	"github.com/roach88/envelope/internal/ir"
	"github.com/roach88/envelope/internal/planner"
)

// partition is the input of one PlanOperations call.
type partition struct {
	arriving []ir.Record
	existing []ir.Record

	// index maps a position in arriving back to the batch position.
	index []int
}

// partitionByKey buckets records by key hash so every record of a key lands
// in the same partition. Input order is kept within a bucket; empty buckets
// are dropped.
func partitionByKey(strategy string, arriving, existing []ir.Record, model *ir.RecordModel, n int) ([]partition, error) {
	buckets := make([]partition, n)

	for i, r := range arriving {
		b, err := bucketOf(model, r, n)
		if err != nil {
			return nil, keyError(strategy, err, i)
		}
		buckets[b].arriving = append(buckets[b].arriving, r)
		buckets[b].index = append(buckets[b].index, i)
	}
	for _, r := range existing {
		b, err := bucketOf(model, r, n)
		if err != nil {
			// A stored row without its key cannot share a key with any
			// arriving record.
			continue
		}
		if len(buckets[b].arriving) > 0 {
			buckets[b].existing = append(buckets[b].existing, r)
		}
	}

	parts := buckets[:0]
	for _, b := range buckets {
		if len(b.arriving) > 0 {
			parts = append(parts, b)
		}
	}
	return parts, nil
}

// partitionByRange splits arriving into at most n contiguous chunks of
// near-equal size. Every chunk sees all existing records.
func partitionByRange(arriving, existing []ir.Record, n int) []partition {
	if len(arriving) == 0 {
		return nil
	}
	n = min(n, len(arriving))
	size := (len(arriving) + n - 1) / n

	var parts []partition
	for start := 0; start < len(arriving); start += size {
		end := min(start+size, len(arriving))
		idx := make([]int, end-start)
		for i := range idx {
			idx[i] = start + i
		}
		parts = append(parts, partition{
			arriving: arriving[start:end:end],
			existing: existing,
			index:    idx,
		})
	}
	return parts
}

func bucketOf(model *ir.RecordModel, r ir.Record, n int) (int, error) {
	h, err := ir.KeyHash(model, r)
	if err != nil {
		return 0, err
	}
	f := fnv.New32a()
	f.Write([]byte(h))
	return int(f.Sum32() % uint32(n)), nil
}

// checkKeys fails on the first arriving record without a key field.
func checkKeys(strategy string, model *ir.RecordModel, arriving []ir.Record) error {
	for i, r := range arriving {
		if _, err := ir.KeyHash(model, r); err != nil {
			return keyError(strategy, err, i)
		}
	}
	return nil
}

// keyError reports an arriving record that cannot be partitioned.
func keyError(strategy string, err error, idx int) error {
	var mf *ir.MissingFieldError
	if errors.As(err, &mf) {
		return &planner.PlanningError{
			Code:        planner.ErrCodeMissingField,
			Strategy:    strategy,
			Field:       mf.Field,
			RecordIndex: idx,
			Message:     "record has no key field " + mf.Field,
		}
	}
	return err
}
