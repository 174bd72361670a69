package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var pg = goqu.Dialect("postgres")

// Postgres is the authoritative store reached directly over the Postgres protocol.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

func NewPostgres(ctx context.Context, dsn string, maxConns int32, timeout time.Duration) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute
	if timeout > 0 {
		cfg.ConnConfig.ConnectTimeout = timeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Insert(ctx context.Context, table string, row map[string]any) (map[string]any, error) {
	query, args, err := buildInsert(table, row)
	if err != nil {
		return nil, fmt.Errorf("build insert into %s: %w", table, err)
	}
	rows, err := p.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	if len(rows) == 0 {
		return row, nil
	}
	return rows[0], nil
}

func (p *Postgres) Select(ctx context.Context, table string, filters ...Filter) ([]map[string]any, error) {
	query, args, err := buildSelect(table, filters)
	if err != nil {
		return nil, fmt.Errorf("build select from %s: %w", table, err)
	}
	rows, err := p.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	return rows, nil
}

func (p *Postgres) Update(ctx context.Context, table string, values map[string]any, filters ...Filter) ([]map[string]any, error) {
	if len(filters) == 0 {
		return nil, fmt.Errorf("update %s: refusing to update without filters", table)
	}
	query, args, err := buildUpdate(table, values, filters)
	if err != nil {
		return nil, fmt.Errorf("build update %s: %w", table, err)
	}
	rows, err := p.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	return rows, nil
}

func (p *Postgres) Count(ctx context.Context, table string, filters ...Filter) (int, error) {
	query, args, err := buildCount(table, filters)
	if err != nil {
		return 0, fmt.Errorf("build count %s: %w", table, err)
	}
	var n int64
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return int(n), nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) query(ctx context.Context, query string, args []any) ([]map[string]any, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	for _, row := range out {
		normalizeRow(row)
	}
	return out, nil
}

// normalizeRow converts driver types so rows look the same as the REST driver's.
func normalizeRow(row map[string]any) {
	for k, v := range row {
		switch x := v.(type) {
		case time.Time:
			row[k] = x.UTC().Format(time.RFC3339Nano)
		case [16]byte:
			row[k] = uuid.UUID(x).String()
		case pgtype.Numeric:
			f, err := x.Float64Value()
			if err == nil && f.Valid {
				row[k] = f.Float64
			} else {
				row[k] = nil
			}
		}
	}
}

func whereOf(filters []Filter) []exp.Expression {
	exprs := make([]exp.Expression, 0, len(filters))
	for _, f := range filters {
		switch f.Op {
		case OpNotNull:
			exprs = append(exprs, goqu.C(f.Column).IsNotNull())
		default:
			exprs = append(exprs, goqu.C(f.Column).Eq(f.Value))
		}
	}
	return exprs
}

func buildInsert(table string, row map[string]any) (string, []any, error) {
	return pg.Insert(table).
		Rows(goqu.Record(row)).
		Returning(goqu.Star()).
		Prepared(true).
		ToSQL()
}

func buildSelect(table string, filters []Filter) (string, []any, error) {
	return pg.From(table).
		Where(whereOf(filters)...).
		Prepared(true).
		ToSQL()
}

func buildUpdate(table string, values map[string]any, filters []Filter) (string, []any, error) {
	return pg.Update(table).
		Set(goqu.Record(values)).
		Where(whereOf(filters)...).
		Returning(goqu.Star()).
		Prepared(true).
		ToSQL()
}

func buildCount(table string, filters []Filter) (string, []any, error) {
	return pg.From(table).
		Select(goqu.COUNT(goqu.Star())).
		Where(whereOf(filters)...).
		Prepared(true).
		ToSQL()
}
