package store

import (
	"embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

//go:embed schema/*.sql
var schemaFS embed.FS

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dialect holds the SQL that differs between drivers.
type dialect struct {
	driver string
	quote  func(string) string

	// dollar placeholders ($1, $2) instead of ?.
	dollar bool

	// upsertClause follows the VALUES list of an INSERT.
	upsertClause string

	// maxParams bounds the placeholders in one statement.
	maxParams int
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{
			driver:       DriverSQLite,
			quote:        quoteDouble,
			upsertClause: "ON CONFLICT (dataset, row_id) DO UPDATE SET key_hash = excluded.key_hash, payload = excluded.payload",
			maxParams:    900,
		}, nil
	case DriverPostgres:
		return dialect{
			driver:       DriverPostgres,
			quote:        pq.QuoteIdentifier,
			dollar:       true,
			upsertClause: "ON CONFLICT (dataset, row_id) DO UPDATE SET key_hash = EXCLUDED.key_hash, payload = EXCLUDED.payload",
			maxParams:    30000,
		}, nil
	case DriverMySQL:
		return dialect{
			driver:       DriverMySQL,
			quote:        quoteBacktick,
			upsertClause: "ON DUPLICATE KEY UPDATE key_hash = VALUES(key_hash), payload = VALUES(payload)",
			maxParams:    30000,
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
}

// rebind rewrites ? placeholders for drivers that number them.
func (d dialect) rebind(query string) string {
	if !d.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// schema returns the statements creating table and its key index.
func (d dialect) schema(table string) ([]string, error) {
	raw, err := schemaFS.ReadFile("schema/" + d.driver + ".sql")
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	text := strings.NewReplacer(
		"{{table}}", d.quote(table),
		"{{index}}", d.quote(table+"_key_idx"),
	).Replace(string(raw))

	var stmts []string
	for _, stmt := range strings.Split(text, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

// normalizeDSN adjusts driver settings the store depends on.
func (d dialect) normalizeDSN(dsn string) (string, error) {
	if d.driver != DriverMySQL {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	// UPDATE must report matched rows, not changed rows, so a rewrite of an
	// identical payload is not mistaken for a missing row.
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
