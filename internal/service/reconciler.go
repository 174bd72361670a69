package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"tower_monitoring/internal/logger"
	"tower_monitoring/internal/metrics"
	"tower_monitoring/internal/models"
	"tower_monitoring/internal/repository/db"
	"tower_monitoring/internal/repository/remote"
)

// dateColumns are parsed from text before rows reach the mirror.
var dateColumns = []string{"fecha_creacion", "ultima_actualizacion", "updated_at", "expires_at", "payment_date"}

// Reconciler copies authoritative tables into the mirror.
type Reconciler struct {
	authoritative remote.Store
	mirror        Mirror
	metrics       *metrics.Metrics
	log           *logger.Logger
	now           func() time.Time
}

func NewReconciler(store remote.Store, mirror Mirror, m *metrics.Metrics, log *logger.Logger) *Reconciler {
	return &Reconciler{
		authoritative: store,
		mirror:        mirror,
		metrics:       m,
		log:           log,
		now:           time.Now,
	}
}

// Reconcile upserts the full authoritative snapshot of table into the mirror in
// one transaction. Running it again on unchanged data updates every row and
// creates none.
func (r *Reconciler) Reconcile(ctx context.Context, table string) (models.SyncResult, error) {
	tbl, ok := db.LookupTable(table)
	if !ok || tbl.LocalOnly {
		return models.SyncResult{}, &UnknownTableError{Table: table}
	}

	rows, err := r.authoritative.Select(ctx, table)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("fetch %s snapshot: %w", table, err)
	}
	if len(rows) == 0 {
		r.log.Warnw("reconcile_empty_snapshot", "table", table)
		return models.SyncResult{}, nil
	}

	res, err := r.apply(ctx, tbl, rows)
	if err != nil {
		return models.SyncResult{}, err
	}

	r.metrics.ReconcileRows.WithLabelValues(table, "created").Add(float64(res.Created))
	r.metrics.ReconcileRows.WithLabelValues(table, "updated").Add(float64(res.Updated))
	r.log.Infow("table_reconciled", "table", table, "created", res.Created, "updated", res.Updated)
	return res, nil
}

func (r *Reconciler) apply(ctx context.Context, tbl db.Table, rows []map[string]any) (res models.SyncResult, err error) {
	tx, err := r.mirror.Begin(ctx)
	if err != nil {
		return res, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, err := tx.Keys(ctx, tbl.Name)
	if err != nil {
		return models.SyncResult{}, err
	}

	pk := tbl.PrimaryKey()
	for _, row := range rows {
		id := keyString(row[pk])
		if id == "" {
			r.log.Warnw("reconcile_row_without_key", "table", tbl.Name, "key", pk)
			continue
		}
		r.normalizeDates(tbl.Name, id, row)

		if _, ok := existing[id]; ok {
			if err = tx.Update(ctx, tbl.Name, row); err != nil {
				return models.SyncResult{}, err
			}
			res.Updated++
			continue
		}
		if err = tx.Insert(ctx, tbl.Name, row); err != nil {
			return models.SyncResult{}, err
		}
		existing[id] = struct{}{}
		res.Created++
	}

	if err = tx.Commit(); err != nil {
		return models.SyncResult{}, fmt.Errorf("commit %s reconciliation: %w", tbl.Name, err)
	}
	return res, nil
}

// normalizeDates parses date-like text in place. Unparseable values fall back to now.
func (r *Reconciler) normalizeDates(table, id string, row map[string]any) {
	for _, col := range dateColumns {
		v, ok := row[col]
		if !ok || isBlank(v) {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		t, err := models.ParseTime(s)
		if err != nil {
			r.log.Warnw("reconcile_date_fallback", "table", table, "id", id, "column", col, "value", s, "err", err)
			t = r.now().UTC()
		}
		row[col] = t
	}
}

// ReconcileAll runs every table independently; one table's failure leaves the others' passes intact.
func (r *Reconciler) ReconcileAll(ctx context.Context, tables []string) (map[string]models.SyncResult, error) {
	results := make(map[string]models.SyncResult, len(tables))
	var errs []error
	for _, table := range tables {
		res, err := r.Reconcile(ctx, table)
		if err != nil {
			r.log.Errorw("reconcile_failed", "table", table, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", table, err))
			continue
		}
		results[table] = res
	}
	return results, errors.Join(errs...)
}

// RunPeriodic reconciles tables every interval until ctx is cancelled.
func (r *Reconciler) RunPeriodic(ctx context.Context, tables []string, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = r.ReconcileAll(ctx, tables)
		}
	}
}

func keyString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
