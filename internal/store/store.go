package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTable is the table used when WithTable is not given.
const DefaultTable = "records"

// Schema version tracking (sqlite3 only, via PRAGMA user_version):
// 1 - records table with key index
const currentSchemaVersion = 1

// Store writes planned records to one table.
//
// Thread-safety: Store is safe for concurrent use. Apply calls on sqlite3
// are serialized by the single connection.
type Store struct {
	db      *sql.DB
	dialect dialect
	table   string
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTable sets the table name. It must be a plain SQL identifier.
func WithTable(name string) Option {
	return func(s *Store) {
		s.table = name
	}
}

// WithLogger sets the logger for write summaries.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open connects to the database and creates the table if needed.
//
// For sqlite3 the dsn is a file path; the database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// This function is idempotent: safe to call repeatedly on the same database.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	s := &Store{dialect: d, table: DefaultTable, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if !identifier.MatchString(s.table) {
		return nil, fmt.Errorf("invalid table name %q", s.table)
	}

	dsn, err = d.normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	switch driver {
	case DriverSQLite:
		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(10 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	s.db = db

	if driver == DriverSQLite {
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}
	if err := s.applySchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string {
	return s.dialect.driver
}

// Table returns the table name.
func (s *Store) Table() string {
	return s.table
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) applySchema(ctx context.Context) error {
	stmts, err := s.dialect.schema(s.table)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema: %w", err)
		}
	}

	if s.dialect.driver == DriverSQLite {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
