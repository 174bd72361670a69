package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"tower_monitoring/internal/repository/db"

	"github.com/DATA-DOG/go-sqlmock"
)

func newSQLiteOperators(t *testing.T) *OperatorRepository {
	t.Helper()
	conn, err := db.InitDB(context.Background(), filepath.Join(t.TempDir(), "operators.sqlite3"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewOperatorRepository(conn)
}

func TestOperatorRepository_RoundTrip(t *testing.T) {
	repo := newSQLiteOperators(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, "operador", "hash-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := repo.Create(ctx, "supervisor", "hash-2")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first < 1 || second != first+1 {
		t.Fatalf("ids = %d, %d, want consecutive autoincrement ids", first, second)
	}

	op, err := repo.GetByUsername(ctx, "supervisor")
	if err != nil || op == nil {
		t.Fatalf("GetByUsername = %+v, %v", op, err)
	}
	if op.ID != second || op.PasswordHash != "hash-2" {
		t.Fatalf("unexpected operator %+v", op)
	}

	missing, err := repo.GetByUsername(ctx, "nadie")
	if err != nil || missing != nil {
		t.Fatalf("unknown username: got %+v, %v; want nil, nil", missing, err)
	}
}

func TestOperatorRepository_Create_DuplicateUsername(t *testing.T) {
	repo := newSQLiteOperators(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "operador", "hash-1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := repo.Create(ctx, "operador", "hash-2")
	if err == nil || !contains(err.Error(), `insert operator "operador"`) {
		t.Fatalf("expected wrapped unique violation, got %v", err)
	}
}

func TestOperatorRepository_HonoursContext(t *testing.T) {
	repo := newSQLiteOperators(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.Create(ctx, "operador", "hash"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Create with cancelled ctx: got %v", err)
	}
	if _, err := repo.GetByUsername(ctx, "operador"); !errors.Is(err, context.Canceled) {
		t.Fatalf("GetByUsername with cancelled ctx: got %v", err)
	}
}

func TestOperatorRepository_Create_LastInsertIDError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
		WithArgs("operador", "hash").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("no last id")))

	_, err = NewOperatorRepository(conn).Create(context.Background(), "operador", "hash")
	if err == nil || !contains(err.Error(), "get last insert id") {
		t.Fatalf("expected last insert id error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestOperatorRepository_GetByUsername_MapsNoRows(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectOperatorByUsernameSQL)).
		WithArgs("operador").
		WillReturnError(sql.ErrNoRows)

	op, err := NewOperatorRepository(conn).GetByUsername(context.Background(), "operador")
	if err != nil || op != nil {
		t.Fatalf("got %+v, %v; want nil, nil", op, err)
	}
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
