package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitDBCreatesDeclaredTables(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mirror.sqlite3")

	conn, err := InitDB(ctx, path)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer conn.Close()

	for _, name := range TableNames() {
		var got string
		err := conn.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&got)
		if err != nil {
			t.Errorf("table %s not created: %v", name, err)
		}
	}

	// second open must be a no-op on an existing file
	again, err := InitDB(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = again.Close()
}

func TestPrimaryKeysDifferPerTable(t *testing.T) {
	tests := map[string]string{
		"torres":               "id_torre",
		"profiles":             "id",
		"payments":             "id",
		"datos_meteorologicos": "id_dato",
		"diagnostico_tecnico":  "id_diagnostico",
	}
	for table, want := range tests {
		tbl, ok := LookupTable(table)
		if !ok {
			t.Fatalf("table %s not declared", table)
		}
		if got := tbl.PrimaryKey(); got != want {
			t.Errorf("%s primary key = %q, want %q", table, got, want)
		}
	}
	if _, ok := LookupTable("nope"); ok {
		t.Error("unexpected table")
	}
}

func TestDDLStoresJSONAsText(t *testing.T) {
	tbl, _ := LookupTable("torres")
	stmts := tbl.DDL()
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	if !strings.Contains(stmts[0], `"ubicacion" TEXT`) {
		t.Errorf("ubicacion should be TEXT: %s", stmts[0])
	}
	if !strings.Contains(stmts[0], `"id_torre" TEXT PRIMARY KEY`) {
		t.Errorf("missing primary key: %s", stmts[0])
	}

	readings, _ := LookupTable("datos_meteorologicos")
	if got := len(readings.DDL()); got != 2 {
		t.Errorf("expected table + index, got %d statements", got)
	}
}
