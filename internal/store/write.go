package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/envelope/internal/ir"
)

// Result counts the rows written by one Apply call.
type Result struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
}

// Total is the number of planned records the call handled.
func (r Result) Total() int {
	return r.Inserted + r.Updated + r.Deleted + r.Upserted + r.Skipped
}

// Add accumulates o into r.
func (r *Result) Add(o Result) {
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Deleted += o.Deleted
	r.Upserted += o.Upserted
	r.Skipped += o.Skipped
}

// row is a planned record ready to write.
type row struct {
	op      ir.OperationType
	rowID   string
	keyHash string
	payload string
}

// Apply writes planned into dataset inside one transaction.
//
// identityFields address a stored row (see planner.IdentityFields). Every
// planned record is checked against allowed, and its hashes and payload are
// computed, before the first statement runs; a RejectedOperationError or
// encoding failure therefore writes nothing. A failing statement rolls the
// whole call back.
//
// INSERT of an existing row and UPDATE or DELETE of a missing row are
// errors. NONE is counted as skipped.
func (s *Store) Apply(ctx context.Context, dataset string, identityFields []string, model *ir.RecordModel, planned []ir.PlannedRecord, allowed ir.OperationSet) (Result, error) {
	rows, err := prepareRows(identityFields, model, planned, allowed)
	if err != nil {
		return Result{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	seq, err := s.nextSeq(ctx, tx, dataset)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i, r := range rows {
		switch r.op {
		case ir.OpNone:
			res.Skipped++
			continue
		case ir.OpInsert:
			err = s.insert(ctx, tx, dataset, r, seq)
			seq++
			res.Inserted++
		case ir.OpUpsert:
			err = s.upsert(ctx, tx, dataset, r, seq)
			seq++
			res.Upserted++
		case ir.OpUpdate:
			err = s.update(ctx, tx, dataset, r)
			res.Updated++
		case ir.OpDelete:
			err = s.delete(ctx, tx, dataset, r)
			res.Deleted++
		}
		if err != nil {
			return Result{}, fmt.Errorf("planned record %d (%s): %w", i, r.op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("applied plan",
		"table", s.table,
		"dataset", dataset,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"deleted", res.Deleted,
		"upserted", res.Upserted,
		"skipped", res.Skipped)
	return res, nil
}

func prepareRows(identityFields []string, model *ir.RecordModel, planned []ir.PlannedRecord, allowed ir.OperationSet) ([]row, error) {
	for i, pr := range planned {
		if !allowed.Contains(pr.Operation()) {
			return nil, &RejectedOperationError{Index: i, Operation: pr.Operation(), Allowed: allowed.Slice()}
		}
	}

	rows := make([]row, len(planned))
	for i, pr := range planned {
		r := row{op: pr.Operation()}
		if r.op == ir.OpNone {
			rows[i] = r
			continue
		}

		var err error
		if r.rowID, err = ir.RowHash(identityFields, pr.Record()); err != nil {
			return nil, fmt.Errorf("planned record %d: row id: %w", i, err)
		}
		if r.keyHash, err = ir.KeyHash(model, pr.Record()); err != nil {
			return nil, fmt.Errorf("planned record %d: key hash: %w", i, err)
		}
		if r.payload, err = encodePayload(pr.Record()); err != nil {
			return nil, fmt.Errorf("planned record %d: %w", i, err)
		}
		rows[i] = r
	}
	return rows, nil
}

func (s *Store) nextSeq(ctx context.Context, tx *sql.Tx, dataset string) (int64, error) {
	var max sql.NullInt64
	query := s.dialect.rebind(fmt.Sprintf(
		"SELECT MAX(seq) FROM %s WHERE dataset = ?", s.dialect.quote(s.table)))
	if err := tx.QueryRowContext(ctx, query, dataset).Scan(&max); err != nil {
		return 0, fmt.Errorf("read sequence: %w", err)
	}
	return max.Int64 + 1, nil
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, dataset string, r row, seq int64) error {
	query := s.dialect.rebind(fmt.Sprintf(
		"INSERT INTO %s (dataset, row_id, key_hash, payload, seq) VALUES (?, ?, ?, ?, ?)",
		s.dialect.quote(s.table)))
	_, err := tx.ExecContext(ctx, query, dataset, r.rowID, r.keyHash, r.payload, seq)
	return err
}

func (s *Store) upsert(ctx context.Context, tx *sql.Tx, dataset string, r row, seq int64) error {
	query := s.dialect.rebind(fmt.Sprintf(
		"INSERT INTO %s (dataset, row_id, key_hash, payload, seq) VALUES (?, ?, ?, ?, ?) %s",
		s.dialect.quote(s.table), s.dialect.upsertClause))
	_, err := tx.ExecContext(ctx, query, dataset, r.rowID, r.keyHash, r.payload, seq)
	return err
}

func (s *Store) update(ctx context.Context, tx *sql.Tx, dataset string, r row) error {
	query := s.dialect.rebind(fmt.Sprintf(
		"UPDATE %s SET key_hash = ?, payload = ? WHERE dataset = ? AND row_id = ?",
		s.dialect.quote(s.table)))
	res, err := tx.ExecContext(ctx, query, r.keyHash, r.payload, dataset, r.rowID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) delete(ctx context.Context, tx *sql.Tx, dataset string, r row) error {
	query := s.dialect.rebind(fmt.Sprintf(
		"DELETE FROM %s WHERE dataset = ? AND row_id = ?",
		s.dialect.quote(s.table)))
	res, err := tx.ExecContext(ctx, query, dataset, r.rowID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrRowNotFound
	}
	return nil
}
