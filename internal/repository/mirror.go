package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"tower_monitoring/internal/repository/db"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// mirrorTimeLayout is how timestamps are written to the mirror, always UTC.
const mirrorTimeLayout = "2006-01-02 15:04:05.000000"

// MirrorTx is one transactional session against the local mirror.
type MirrorTx interface {
	// Keys loads every primary-key value currently stored in table.
	Keys(ctx context.Context, table string) (map[string]struct{}, error)
	Insert(ctx context.Context, table string, row map[string]any) error
	// Update applies a field-wise update to the row matching the row's primary key.
	Update(ctx context.Context, table string, row map[string]any) error
	Commit() error
	Rollback() error
}

// MirrorSQLite is the local durable mirror on top of the SQLite handle.
type MirrorSQLite struct {
	db *sqlx.DB
}

func NewMirrorSQLite(conn *sql.DB) *MirrorSQLite {
	return &MirrorSQLite{db: sqlx.NewDb(conn, db.DriverName)}
}

// Begin opens a transaction. Callers must Commit or Rollback it.
func (m *MirrorSQLite) Begin(ctx context.Context) (MirrorTx, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin mirror transaction: %w", err)
	}
	return &mirrorTx{tx: tx}, nil
}

// InsertOne writes a single row in its own transaction, rolling back on failure.
func (m *MirrorSQLite) InsertOne(ctx context.Context, table string, row map[string]any) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	if err := tx.Insert(ctx, table, row); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert into %s: %w", table, err)
	}
	return nil
}

// Ping checks the mirror handle.
func (m *MirrorSQLite) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

type mirrorTx struct {
	tx *sqlx.Tx
}

func (t *mirrorTx) Keys(ctx context.Context, table string) (map[string]struct{}, error) {
	tbl, err := declared(table)
	if err != nil {
		return nil, err
	}
	var keys []string
	query := fmt.Sprintf("SELECT CAST(%q AS TEXT) FROM %q", tbl.PrimaryKey(), tbl.Name)
	if err := t.tx.SelectContext(ctx, &keys, query); err != nil {
		return nil, fmt.Errorf("select keys of %s: %w", table, err)
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set, nil
}

func (t *mirrorTx) Insert(ctx context.Context, table string, row map[string]any) error {
	tbl, err := declared(table)
	if err != nil {
		return err
	}
	args, cols, err := bindRow(tbl, row)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("insert into %s: no declared columns in row", table)
	}
	if _, err := t.tx.NamedExecContext(ctx, insertSQL(tbl.Name, cols), args); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (t *mirrorTx) Update(ctx context.Context, table string, row map[string]any) error {
	tbl, err := declared(table)
	if err != nil {
		return err
	}
	pk := tbl.PrimaryKey()
	if _, ok := row[pk]; !ok {
		return fmt.Errorf("update %s: row has no %s", table, pk)
	}
	args, cols, err := bindRow(tbl, row)
	if err != nil {
		return err
	}
	set := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != pk {
			set = append(set, c)
		}
	}
	if len(set) == 0 {
		return nil
	}
	if _, err := t.tx.NamedExecContext(ctx, updateSQL(tbl.Name, pk, set), args); err != nil {
		return fmt.Errorf("update %s %v: %w", table, row[pk], err)
	}
	return nil
}

func (t *mirrorTx) Commit() error   { return t.tx.Commit() }
func (t *mirrorTx) Rollback() error { return t.tx.Rollback() }

func declared(table string) (db.Table, error) {
	tbl, ok := db.LookupTable(table)
	if !ok {
		return db.Table{}, fmt.Errorf("table %q is not declared in the mirror", table)
	}
	return tbl, nil
}

// bindRow keeps the declared columns of row, converted to mirror values.
// The returned column list is sorted so statements are deterministic.
func bindRow(tbl db.Table, row map[string]any) (map[string]any, []string, error) {
	args := make(map[string]any, len(row))
	cols := make([]string, 0, len(row))
	for name, v := range row {
		col, ok := tbl.Column(name)
		if !ok {
			continue
		}
		mv, err := mirrorValue(col, v)
		if err != nil {
			return nil, nil, fmt.Errorf("%s.%s: %w", tbl.Name, name, err)
		}
		args[name] = mv
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return args, cols, nil
}

func mirrorValue(col db.Column, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x.UTC().Format(mirrorTimeLayout), nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return x.UTC().Format(mirrorTimeLayout), nil
	case string:
		// already text; JSON columns receive serialized documents as-is
		return x, nil
	case bool, int, int32, int64, float32, float64:
		if col.Type == db.TypeJSON {
			b, err := json.Marshal(x)
			if err != nil {
				return nil, err
			}
			return string(b), nil
		}
		return x, nil
	default:
		// maps, slices and anything else structured land as JSON text
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}

func insertSQL(table string, cols []string) string {
	quoted := make([]string, len(cols))
	named := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%q", c)
		named[i] = ":" + c
	}
	return fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		table, strings.Join(quoted, ", "), strings.Join(named, ", "))
}

func updateSQL(table, pk string, cols []string) string {
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = fmt.Sprintf("%q = :%s", c, c)
	}
	return fmt.Sprintf("UPDATE %q SET %s WHERE %q = :%s",
		table, strings.Join(set, ", "), pk, pk)
}
