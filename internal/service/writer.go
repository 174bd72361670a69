package service

import (
	"context"
	"time"

	"tower_monitoring/internal/logger"
	"tower_monitoring/internal/metrics"
	"tower_monitoring/internal/models"
	"tower_monitoring/internal/repository/remote"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	authoritativeAttempts   = 3
	authoritativeRetryDelay = time.Second
)

// FanOutWriter replicates one record to every storage tier. A failing tier
// never prevents the others from being attempted.
type FanOutWriter struct {
	authoritative remote.Store
	mirror        Mirror
	cache         LatestCache
	series        PointWriter // optional
	metrics       *metrics.Metrics
	log           *logger.Logger

	attempts   int
	retryDelay time.Duration
}

func NewFanOutWriter(store remote.Store, mirror Mirror, cache LatestCache, series PointWriter, m *metrics.Metrics, log *logger.Logger) *FanOutWriter {
	return &FanOutWriter{
		authoritative: store,
		mirror:        mirror,
		cache:         cache,
		series:        series,
		metrics:       m,
		log:           log,
		attempts:      authoritativeAttempts,
		retryDelay:    authoritativeRetryDelay,
	}
}

// Save writes data as a record of kind. The error is non-nil only when no tier
// was attempted: an unknown kind or missing required fields. Tier failures are
// reported in the result.
//
// Cancelling ctx only cuts the authoritative retry wait short; every tier is
// still written once so an iteration in flight during shutdown completes.
func (w *FanOutWriter) Save(ctx context.Context, kind models.RecordKind, data map[string]any) (models.FanOutResult, error) {
	spec, ok := models.LookupKind(kind)
	if !ok {
		return nil, &UnsupportedKindError{Kind: kind}
	}
	if err := models.ValidateRequired(kind, data); err != nil {
		return nil, err
	}

	record := authoritativeRow(spec, data)
	if isBlank(record[spec.IDColumn]) {
		record[spec.IDColumn] = uuid.NewString()
	}
	towerID, _ := record["id_torre"].(string)

	storeCtx := context.WithoutCancel(ctx)
	result := models.FanOutResult{}
	result[models.TierAuthoritative] = w.writeAuthoritative(ctx, storeCtx, spec, record)
	result[models.TierMirror] = w.writeMirror(storeCtx, spec, record)

	if spec.Cached {
		result[models.TierCache] = w.writeCache(storeCtx, towerID, record)
	} else {
		result[models.TierCache] = models.TierOutcome{Success: true, Skipped: true}
	}
	if w.series != nil && kind == models.KindTelemetry {
		result[models.TierTimeSeries] = w.writeSeries(storeCtx, record)
	}

	for tier, out := range result {
		label := metrics.Result(out.Success)
		if out.Skipped {
			label = metrics.ResultSkipped
		}
		w.metrics.FanOutWrites.WithLabelValues(string(kind), string(tier), label).Inc()
	}
	if failed := result.FailedTiers(); len(failed) > 0 {
		w.log.Warnw("fanout_partial_failure", "kind", kind, "tower", towerID, "failed_tiers", failed)
	}
	return result, nil
}

// writeAuthoritative retries on ctx; each insert runs on storeCtx.
func (w *FanOutWriter) writeAuthoritative(ctx, storeCtx context.Context, spec models.KindSpec, record map[string]any) models.TierOutcome {
	var stored map[string]any
	attempts, err := retryFixed(ctx, w.attempts, w.retryDelay, func(context.Context) error {
		row, err := w.authoritative.Insert(storeCtx, spec.Table, record)
		if err != nil {
			w.log.Debugw("authoritative_insert_attempt_failed", "table", spec.Table, "err", err)
			return err
		}
		stored = row
		return nil
	})
	if err != nil {
		return w.failed(models.TierAuthoritative, err, attempts)
	}
	return models.TierOutcome{Success: true, Attempts: attempts, Stored: stored}
}

func (w *FanOutWriter) writeMirror(ctx context.Context, spec models.KindSpec, record map[string]any) models.TierOutcome {
	row := mirrorRow(spec, record, w.log)
	if err := w.mirror.InsertOne(ctx, spec.Table, row); err != nil {
		return w.failed(models.TierMirror, err, 1)
	}
	return models.TierOutcome{Success: true, Attempts: 1}
}

func (w *FanOutWriter) writeCache(ctx context.Context, towerID string, record map[string]any) models.TierOutcome {
	payload, err := json.Marshal(record)
	if err == nil {
		err = w.cache.SetLatest(ctx, towerID, payload)
	}
	if err != nil {
		return w.failed(models.TierCache, err, 1)
	}
	return models.TierOutcome{Success: true, Attempts: 1}
}

func (w *FanOutWriter) writeSeries(ctx context.Context, record map[string]any) models.TierOutcome {
	if err := w.series.Write(ctx, record); err != nil {
		return w.failed(models.TierTimeSeries, err, 1)
	}
	return models.TierOutcome{Success: true, Attempts: 1}
}

func (w *FanOutWriter) failed(tier models.Tier, err error, attempts int) models.TierOutcome {
	tierErr := &TierWriteError{Tier: tier, Err: err}
	w.log.Errorw("tier_write_failed", "tier", tier, "attempts", attempts, "err", tierErr)
	return models.TierOutcome{Success: false, Error: err.Error(), Attempts: attempts}
}

// authoritativeRow copies data with every time value rendered as ISO-8601 text.
func authoritativeRow(spec models.KindSpec, data map[string]any) map[string]any {
	row := make(map[string]any, len(data)+1)
	for k, v := range data {
		switch x := v.(type) {
		case time.Time:
			row[k] = models.FormatTime(x)
		case *time.Time:
			if x != nil {
				row[k] = models.FormatTime(*x)
			} else {
				row[k] = nil
			}
		default:
			row[k] = v
		}
	}
	for _, col := range spec.DateColumns {
		if s, ok := row[col].(string); ok {
			if t, err := models.ParseTime(s); err == nil {
				row[col] = models.FormatTime(t)
			}
		}
	}
	return row
}

// mirrorRow copies record with the date columns parsed back to time values.
// Unparseable dates are kept as text and logged.
func mirrorRow(spec models.KindSpec, record map[string]any, log *logger.Logger) map[string]any {
	row := make(map[string]any, len(record))
	for k, v := range record {
		row[k] = v
	}
	for _, col := range spec.DateColumns {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		t, err := models.ParseTime(v)
		if err != nil {
			log.Warnw("mirror_date_unparsed", "table", spec.Table, "column", col, "value", v, "err", err)
			continue
		}
		row[col] = t
	}
	return row
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	default:
		return false
	}
}
