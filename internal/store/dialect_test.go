package store

import (
	"strings"
	"testing"
)

func TestDialect_Rebind(t *testing.T) {
	pg, _ := dialectFor(DriverPostgres)
	lite, _ := dialectFor(DriverSQLite)

	q := "SELECT a FROM t WHERE b = ? AND c IN (?, ?)"
	if got, want := pg.rebind(q), "SELECT a FROM t WHERE b = $1 AND c IN ($2, $3)"; got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
	if got := lite.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestDialect_Quote(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{DriverSQLite, `"records"`},
		{DriverPostgres, `"records"`},
		{DriverMySQL, "`records`"},
	}
	for _, tt := range tests {
		d, err := dialectFor(tt.driver)
		if err != nil {
			t.Fatalf("dialectFor(%q): %v", tt.driver, err)
		}
		if got := d.quote("records"); got != tt.want {
			t.Errorf("%s quote = %s, want %s", tt.driver, got, tt.want)
		}
	}
}

func TestDialect_Schema(t *testing.T) {
	for _, driver := range []string{DriverSQLite, DriverPostgres, DriverMySQL} {
		d, _ := dialectFor(driver)
		stmts, err := d.schema("order_rows")
		if err != nil {
			t.Fatalf("%s schema: %v", driver, err)
		}
		if len(stmts) == 0 {
			t.Fatalf("%s schema has no statements", driver)
		}
		for _, stmt := range stmts {
			if strings.Contains(stmt, "{{") {
				t.Errorf("%s schema left a placeholder: %s", driver, stmt)
			}
		}
		if !strings.Contains(stmts[0], d.quote("order_rows")) {
			t.Errorf("%s schema does not create the quoted table: %s", driver, stmts[0])
		}
	}
}

func TestDialect_MySQLDSNReportsMatchedRows(t *testing.T) {
	d, _ := dialectFor(DriverMySQL)

	dsn, err := d.normalizeDSN("user:pw@tcp(localhost:3306)/envelope?parseTime=true")
	if err != nil {
		t.Fatalf("normalizeDSN: %v", err)
	}
	if !strings.Contains(dsn, "clientFoundRows=true") {
		t.Errorf("dsn %q does not enable clientFoundRows", dsn)
	}

	if _, err := d.normalizeDSN("not a dsn"); err == nil {
		t.Error("expected error for malformed mysql dsn")
	}
}

func TestDialect_Unknown(t *testing.T) {
	if _, err := dialectFor("oracle"); err == nil {
		t.Error("expected error for unknown driver")
	}
}
