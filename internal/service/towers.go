package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tower_monitoring/internal/logger"
	"tower_monitoring/internal/models"
	"tower_monitoring/internal/repository/cache"
)

var (
	ErrInvalidTower      = errors.New("invalid tower")
	ErrInvalidTowerState = errors.New("invalid tower state")
	ErrTowerNotFound     = errors.New("tower not found")
	ErrNoLatestReading   = errors.New("no cached reading for tower")
)

// WorkerControl starts and stops the worker of a single tower.
type WorkerControl interface {
	StartOne(t models.Tower) bool
	Stop(towerID string) bool
}

// TowerService manages towers and keeps their workers in step with their state.
type TowerService struct {
	directory TowerDirectory
	cache     LatestCache
	workers   WorkerControl
	log       *logger.Logger
	now       func() time.Time
}

func NewTowerService(directory TowerDirectory, cache LatestCache, workers WorkerControl, log *logger.Logger) *TowerService {
	return &TowerService{
		directory: directory,
		cache:     cache,
		workers:   workers,
		log:       log,
		now:       time.Now,
	}
}

// List returns every tower, or only those assigned to userID when it is not empty.
func (s *TowerService) List(ctx context.Context, userID string) ([]models.Tower, error) {
	if userID != "" {
		return s.directory.ByUser(ctx, userID)
	}
	return s.directory.List(ctx)
}

// Get returns ErrTowerNotFound when no tower has id.
func (s *TowerService) Get(ctx context.Context, id string) (models.Tower, error) {
	t, err := s.directory.Get(ctx, id)
	if err != nil {
		return models.Tower{}, err
	}
	if t == nil {
		return models.Tower{}, ErrTowerNotFound
	}
	return *t, nil
}

// Create stores a new tower. New towers start Inactiva.
func (s *TowerService) Create(ctx context.Context, t models.Tower) (models.Tower, error) {
	var missing []string
	if strings.TrimSpace(t.Name) == "" {
		missing = append(missing, "nombre")
	}
	if len(t.Location) == 0 {
		missing = append(missing, "ubicacion")
	}
	if strings.TrimSpace(t.DataSource) == "" {
		missing = append(missing, "origen_datos")
	}
	if len(missing) > 0 {
		return models.Tower{}, fmt.Errorf("%w: missing %s", ErrInvalidTower, strings.Join(missing, ", "))
	}

	now := s.now().UTC()
	t.ID = ""
	t.State = models.TowerInactive
	t.CreatedAt = now
	t.UpdatedAt = now

	created, err := s.directory.Create(ctx, t)
	if err != nil {
		return models.Tower{}, err
	}
	s.log.Infow("tower_created", "tower", created.ID, "nombre", created.Name)
	return created, nil
}

// UpdateState changes the state of a tower and starts or stops its worker accordingly.
func (s *TowerService) UpdateState(ctx context.Context, id string, state models.TowerState) (models.Tower, error) {
	switch state {
	case models.TowerActive, models.TowerInactive, models.TowerMaintenance:
	default:
		return models.Tower{}, fmt.Errorf("%w: %q", ErrInvalidTowerState, state)
	}

	t, err := s.directory.UpdateState(ctx, id, state, s.now().UTC())
	if err != nil {
		return models.Tower{}, err
	}
	if t == nil {
		return models.Tower{}, ErrTowerNotFound
	}

	if t.Schedulable() {
		s.workers.StartOne(*t)
	} else {
		s.workers.Stop(t.ID)
	}
	s.log.Infow("tower_state_changed", "tower", t.ID, "estado", t.State)
	return *t, nil
}

// CountActive counts towers in the Activa state, assigned or not.
func (s *TowerService) CountActive(ctx context.Context) (int, error) {
	return s.directory.CountActive(ctx)
}

// Latest returns the last telemetry row cached for the tower.
func (s *TowerService) Latest(ctx context.Context, id string) (map[string]any, error) {
	payload, err := s.cache.Latest(ctx, id)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrNoLatestReading
	}
	if err != nil {
		return nil, fmt.Errorf("read latest reading of %q: %w", id, err)
	}

	var row map[string]any
	if err := json.Unmarshal(payload, &row); err != nil {
		return nil, fmt.Errorf("decode latest reading of %q: %w", id, err)
	}
	return row, nil
}
