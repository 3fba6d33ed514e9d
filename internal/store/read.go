package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/envelope/internal/ir"
)

// storedRow is one row as read back, used for ordering.
type storedRow struct {
	seq    int64
	rowID  string
	record ir.Record
}

// Existing returns the stored records of dataset that share a key with any
// arriving record, ordered by seq then row id.
//
// Returns an empty slice (not nil) when nothing matches. An arriving record
// without a key field is an error.
func (s *Store) Existing(ctx context.Context, dataset string, model *ir.RecordModel, arriving []ir.Record) ([]ir.Record, error) {
	seen := make(map[string]bool, len(arriving))
	var hashes []string
	for i, r := range arriving {
		h, err := ir.KeyHash(model, r)
		if err != nil {
			return nil, fmt.Errorf("arriving record %d: %w", i, err)
		}
		if !seen[h] {
			seen[h] = true
			hashes = append(hashes, h)
		}
	}

	var found []storedRow
	chunk := s.dialect.maxParams - 1
	for start := 0; start < len(hashes); start += chunk {
		end := min(start+chunk, len(hashes))
		rows, err := s.queryKeys(ctx, dataset, hashes[start:end])
		if err != nil {
			return nil, err
		}
		found = append(found, rows...)
	}

	return sortedRecords(found), nil
}

// Records returns every stored record of dataset, ordered by seq then row id.
func (s *Store) Records(ctx context.Context, dataset string) ([]ir.Record, error) {
	query := s.dialect.rebind(fmt.Sprintf(
		"SELECT seq, row_id, payload FROM %s WHERE dataset = ? ORDER BY seq ASC, row_id ASC",
		s.dialect.quote(s.table)))
	rows, err := s.scan(ctx, query, dataset)
	if err != nil {
		return nil, err
	}
	return sortedRecords(rows), nil
}

func (s *Store) queryKeys(ctx context.Context, dataset string, hashes []string) ([]storedRow, error) {
	args := make([]any, 0, len(hashes)+1)
	args = append(args, dataset)
	for _, h := range hashes {
		args = append(args, h)
	}
	query := s.dialect.rebind(fmt.Sprintf(
		"SELECT seq, row_id, payload FROM %s WHERE dataset = ? AND key_hash IN (%s)",
		s.dialect.quote(s.table), strings.TrimSuffix(strings.Repeat("?, ", len(hashes)), ", ")))
	return s.scan(ctx, query, args...)
}

func (s *Store) scan(ctx context.Context, query string, args ...any) ([]storedRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []storedRow
	for rows.Next() {
		var (
			sr      storedRow
			payload string
		)
		if err := rows.Scan(&sr.seq, &sr.rowID, &payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if sr.record, err = decodePayload(payload); err != nil {
			return nil, fmt.Errorf("row %s: %w", sr.rowID, err)
		}
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func sortedRecords(rows []storedRow) []ir.Record {
	slices.SortFunc(rows, func(a, b storedRow) int {
		if a.seq != b.seq {
			if a.seq < b.seq {
				return -1
			}
			return 1
		}
		return strings.Compare(a.rowID, b.rowID)
	})
	out := make([]ir.Record, len(rows))
	for i, r := range rows {
		out[i] = r.record
	}
	return out
}
