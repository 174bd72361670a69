package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tower_monitoring/internal/config"
	"tower_monitoring/internal/logger"
	"tower_monitoring/internal/messaging"
	"tower_monitoring/internal/repository/cache"
	"tower_monitoring/internal/repository/db"
	"tower_monitoring/internal/repository/remote"
	"tower_monitoring/internal/repository/timeseries"
)

// Store names used in ConnectionError and logs.
const (
	StoreAuthoritative = "authoritative"
	StoreMirror        = "mirror"
	StoreCache         = "cache"
	StoreTimeSeries    = "timeseries"
	StoreMQTT          = "mqtt"
)

// ConnectionError is returned by Open when a store fails its startup check.
type ConnectionError struct {
	Store string
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s store: %v", e.Store, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Repository holds the handles of every backing store. It is built once by
// Open and shared by reference.
type Repository struct {
	Authoritative remote.Store
	Mirror        *MirrorSQLite
	Cache         *cache.Redis
	TimeSeries    *timeseries.Influx       // nil when not configured
	AlertBroker   *messaging.MQTTPublisher // nil when not configured
	Operators     *OperatorRepository
	Towers        *TowerDirectory

	mirrorDB *sql.DB
}

// Open connects and health-checks every configured store.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Repository, error) {
	repo := &Repository{}
	if err := repo.open(ctx, cfg, log); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) open(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	store, err := openAuthoritative(ctx, cfg.Authoritative)
	if err != nil {
		return &ConnectionError{Store: StoreAuthoritative, Err: err}
	}
	r.Authoritative = store
	if err := store.Ping(ctx); err != nil {
		return &ConnectionError{Store: StoreAuthoritative, Err: err}
	}
	log.Infow("store_connected", "store", StoreAuthoritative, "driver", cfg.Authoritative.Driver)

	if r.mirrorDB, err = db.InitDB(ctx, cfg.Mirror.Path); err != nil {
		return &ConnectionError{Store: StoreMirror, Err: err}
	}
	r.Mirror = NewMirrorSQLite(r.mirrorDB)
	r.Operators = NewOperatorRepository(r.mirrorDB)
	log.Infow("store_connected", "store", StoreMirror, "path", cfg.Mirror.Path)

	if r.Cache, err = cache.NewRedis(cfg.Cache.URL, cfg.Cache.LatestTTL); err != nil {
		return &ConnectionError{Store: StoreCache, Err: err}
	}
	if err := r.Cache.Ping(ctx); err != nil {
		return &ConnectionError{Store: StoreCache, Err: err}
	}
	log.Infow("store_connected", "store", StoreCache)

	if cfg.TimeSeries.Enabled() {
		r.TimeSeries = timeseries.NewInflux(cfg.TimeSeries.URL, cfg.TimeSeries.Token, cfg.TimeSeries.Org, cfg.TimeSeries.Bucket)
		if err := r.TimeSeries.Ping(ctx); err != nil {
			return &ConnectionError{Store: StoreTimeSeries, Err: err}
		}
		log.Infow("store_connected", "store", StoreTimeSeries, "bucket", cfg.TimeSeries.Bucket)
	}

	if cfg.MQTT.Enabled() {
		if r.AlertBroker, err = messaging.NewMQTTPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix); err != nil {
			return &ConnectionError{Store: StoreMQTT, Err: err}
		}
		log.Infow("store_connected", "store", StoreMQTT, "broker", cfg.MQTT.Broker)
	}

	r.Towers = NewTowerDirectory(r.Authoritative)
	return nil
}

func openAuthoritative(ctx context.Context, cfg config.Authoritative) (remote.Store, error) {
	switch cfg.Driver {
	case "postgrest":
		return remote.NewPostgREST(cfg.URL, cfg.APIKey, cfg.Timeout), nil
	case "postgres":
		pg, err := remote.NewPostgres(ctx, cfg.DSN, cfg.MaxConns, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// Close releases every handle that was opened. Safe on a partially opened Repository.
func (r *Repository) Close() {
	if r.AlertBroker != nil {
		r.AlertBroker.Close()
	}
	if r.TimeSeries != nil {
		r.TimeSeries.Close()
	}
	if r.Cache != nil {
		_ = r.Cache.Close()
	}
	if r.mirrorDB != nil {
		_ = r.mirrorDB.Close()
	}
	if r.Authoritative != nil {
		r.Authoritative.Close()
	}
}
