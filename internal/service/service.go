package service

import (
	"context"
	"time"

	"tower_monitoring/internal/config"
	"tower_monitoring/internal/logger"
	"tower_monitoring/internal/metrics"
	"tower_monitoring/internal/models"
	"tower_monitoring/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Writer replicates one record to every storage tier.
type Writer interface {
	Save(ctx context.Context, kind models.RecordKind, data map[string]any) (models.FanOutResult, error)
}

// Reconciliation copies authoritative tables into the mirror.
type Reconciliation interface {
	Reconcile(ctx context.Context, table string) (models.SyncResult, error)
	ReconcileAll(ctx context.Context, tables []string) (map[string]models.SyncResult, error)
	RunPeriodic(ctx context.Context, tables []string, interval time.Duration)
}

// Scheduling runs the per-tower workers.
type Scheduling interface {
	StartAll(ctx context.Context) (int, error)
	StartOne(t models.Tower) bool
	Stop(towerID string) bool
	StopAll()
	Running() bool
	Workers() []WorkerInfo
}

// Towers is tower management for operators.
type Towers interface {
	List(ctx context.Context, userID string) ([]models.Tower, error)
	Get(ctx context.Context, id string) (models.Tower, error)
	Create(ctx context.Context, t models.Tower) (models.Tower, error)
	UpdateState(ctx context.Context, id string, state models.TowerState) (models.Tower, error)
	Latest(ctx context.Context, id string) (map[string]any, error)
	CountActive(ctx context.Context) (int, error)
}

// AlertFeed streams published alerts.
type AlertFeed interface {
	Subscribe(ctx context.Context) (<-chan []byte, error)
}

// Service aggregates all sub-services.
type Service struct {
	Writer
	Reconciliation
	Scheduling
	Towers
	Authorization
	AlertFeed
}

// NewService wires the repository layer into concrete services.
func NewService(repos *repository.Repository, cfg *config.Config, m *metrics.Metrics, log *logger.Logger) *Service {
	// Optional sinks stay untyped nil when absent.
	var series PointWriter
	if repos.TimeSeries != nil {
		series = repos.TimeSeries
	}
	var broker TowerPublisher
	if repos.AlertBroker != nil {
		broker = repos.AlertBroker
	}

	writer := NewFanOutWriter(repos.Authoritative, repos.Mirror, repos.Cache, series, m, log)
	alerts := NewAlertPublisher(repos.Cache, broker, repos.Cache, m, log)
	scheduler := NewScheduler(repos.Towers, writer, NewReadingGenerator(), alerts, schedulerConfig(cfg), m, log)

	return &Service{
		Writer:         writer,
		Reconciliation: NewReconciler(repos.Authoritative, repos.Mirror, m, log),
		Scheduling:     scheduler,
		Towers:         NewTowerService(repos.Towers, repos.Cache, scheduler, log),
		Authorization:  NewAuthService(repos.Operators, cfg.Auth.SigningKey, cfg.Auth.TokenTTL),
		AlertFeed:      alerts,
	}
}

func schedulerConfig(cfg *config.Config) SchedulerConfig {
	sc := DefaultSchedulerConfig()
	if cfg.Scheduler.Interval > 0 {
		sc.Interval = cfg.Scheduler.Interval
	}
	if cfg.Scheduler.ErrorBackoff > 0 {
		sc.ErrorBackoff = cfg.Scheduler.ErrorBackoff
	}
	if cfg.Scheduler.StopTimeout > 0 {
		sc.StopTimeout = cfg.Scheduler.StopTimeout
	}
	sc.Thresholds = Thresholds{
		TemperatureHigh: cfg.Alerts.TemperatureHigh,
		TemperatureLow:  cfg.Alerts.TemperatureLow,
		HumidityHigh:    cfg.Alerts.HumidityHigh,
		BatteryLow:      cfg.Alerts.BatteryLow,
	}
	return sc
}
