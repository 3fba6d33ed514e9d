package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/envelope/internal/ir"
)

// createTestStore opens a fresh sqlite store in a temp directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), DriverSQLite, path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var (
	testModel   = ir.MustRecordModel([]string{"id"})
	insertOnly  = ir.NewOperationSet(ir.OpInsert)
	allWriteOps = ir.NewOperationSet(ir.OpInsert, ir.OpUpdate, ir.OpDelete, ir.OpUpsert, ir.OpNone)
)

func plan(op ir.OperationType, records ...ir.Record) []ir.PlannedRecord {
	out := make([]ir.PlannedRecord, len(records))
	for i, r := range records {
		out[i] = ir.NewPlannedRecord(r, op)
	}
	return out
}

func countRows(t *testing.T, s *Store) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + s.dialect.quote(s.table)).Scan(&n); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}
