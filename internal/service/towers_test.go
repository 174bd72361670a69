package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tower_monitoring/internal/logger"
	"tower_monitoring/internal/models"
)

type stubWorkers struct {
	started []string
	stopped []string
}

func (w *stubWorkers) StartOne(t models.Tower) bool {
	w.started = append(w.started, t.ID)
	return true
}

func (w *stubWorkers) Stop(towerID string) bool {
	w.stopped = append(w.stopped, towerID)
	return true
}

func newTestTowerService(dir *stubDirectory, c *stubCache, w *stubWorkers) *TowerService {
	s := NewTowerService(dir, c, w, logger.Nop())
	s.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestTowerService_Create(t *testing.T) {
	dir := &stubDirectory{}
	s := newTestTowerService(dir, &stubCache{}, &stubWorkers{})

	created, err := s.Create(context.Background(), models.Tower{
		ID:         "client-chosen",
		Name:       "Torre Este",
		Location:   map[string]any{"lat": 1.0, "lon": 2.0},
		State:      models.TowerActive,
		DataSource: "simulado",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != "new-tower" || created.State != models.TowerInactive {
		t.Fatalf("unexpected tower: %+v", created)
	}
	stored := dir.created[0]
	if stored.ID != "" {
		t.Errorf("id must be assigned by the store, got %q", stored.ID)
	}
	want := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	if !stored.CreatedAt.Equal(want) || !stored.UpdatedAt.Equal(want) {
		t.Errorf("timestamps = %v / %v, want %v", stored.CreatedAt, stored.UpdatedAt, want)
	}
}

func TestTowerService_Create_Validation(t *testing.T) {
	tests := []struct {
		name  string
		tower models.Tower
	}{
		{"missing name", models.Tower{Location: map[string]any{"lat": 1.0}, DataSource: "simulado"}},
		{"missing location", models.Tower{Name: "Torre", DataSource: "simulado"}},
		{"missing data source", models.Tower{Name: "Torre", Location: map[string]any{"lat": 1.0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &stubDirectory{}
			s := newTestTowerService(dir, &stubCache{}, &stubWorkers{})
			_, err := s.Create(context.Background(), tt.tower)
			if !errors.Is(err, ErrInvalidTower) {
				t.Fatalf("expected ErrInvalidTower, got %v", err)
			}
			if len(dir.created) != 0 {
				t.Fatalf("invalid tower must not be stored")
			}
		})
	}
}

func TestTowerService_UpdateState(t *testing.T) {
	tests := []struct {
		name        string
		tower       models.Tower
		state       models.TowerState
		wantStarted bool
		wantStopped bool
	}{
		{"activating an assigned tower starts its worker", models.Tower{ID: "T1", State: models.TowerInactive, AssignedUser: strPtr("u-1")}, models.TowerActive, true, false},
		{"activating an unassigned tower does not", models.Tower{ID: "T1", State: models.TowerInactive}, models.TowerActive, false, true},
		{"maintenance stops the worker", models.Tower{ID: "T1", State: models.TowerActive, AssignedUser: strPtr("u-1")}, models.TowerMaintenance, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &stubDirectory{towers: []models.Tower{tt.tower}}
			w := &stubWorkers{}
			s := newTestTowerService(dir, &stubCache{}, w)

			got, err := s.UpdateState(context.Background(), "T1", tt.state)
			if err != nil {
				t.Fatalf("UpdateState: %v", err)
			}
			if got.State != tt.state {
				t.Fatalf("state = %s, want %s", got.State, tt.state)
			}
			if (len(w.started) == 1) != tt.wantStarted || (len(w.stopped) == 1) != tt.wantStopped {
				t.Fatalf("started=%v stopped=%v", w.started, w.stopped)
			}
		})
	}
}

func TestTowerService_UpdateState_Errors(t *testing.T) {
	s := newTestTowerService(&stubDirectory{}, &stubCache{}, &stubWorkers{})

	if _, err := s.UpdateState(context.Background(), "missing", models.TowerActive); !errors.Is(err, ErrTowerNotFound) {
		t.Fatalf("expected ErrTowerNotFound, got %v", err)
	}
	if _, err := s.UpdateState(context.Background(), "T1", "Demolida"); !errors.Is(err, ErrInvalidTowerState) {
		t.Fatalf("expected ErrInvalidTowerState, got %v", err)
	}
}

func TestTowerService_List(t *testing.T) {
	dir := &stubDirectory{towers: []models.Tower{
		{ID: "T1", AssignedUser: strPtr("u-1")},
		{ID: "T2", AssignedUser: strPtr("u-2")},
		{ID: "T3"},
	}}
	s := newTestTowerService(dir, &stubCache{}, &stubWorkers{})

	all, err := s.List(context.Background(), "")
	if err != nil || len(all) != 3 {
		t.Fatalf("List all = %d towers (err %v), want 3", len(all), err)
	}
	mine, err := s.List(context.Background(), "u-2")
	if err != nil || len(mine) != 1 || mine[0].ID != "T2" {
		t.Fatalf("List u-2 = %+v (err %v)", mine, err)
	}
}

func TestTowerService_Latest(t *testing.T) {
	c := &stubCache{latest: map[string][]byte{"T1": []byte(`{"id_torre":"T1","temperatura":21.5}`)}}
	s := newTestTowerService(&stubDirectory{}, c, &stubWorkers{})

	row, err := s.Latest(context.Background(), "T1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if row["temperatura"] != 21.5 {
		t.Fatalf("unexpected row: %v", row)
	}

	if _, err := s.Latest(context.Background(), "T9"); !errors.Is(err, ErrNoLatestReading) {
		t.Fatalf("expected ErrNoLatestReading, got %v", err)
	}
}

func TestTowerService_CountActive(t *testing.T) {
	dir := &stubDirectory{towers: []models.Tower{activeTower("T1"), {ID: "T2", State: models.TowerActive}, {ID: "T3", State: models.TowerInactive}}}
	s := newTestTowerService(dir, &stubCache{}, &stubWorkers{})

	n, err := s.CountActive(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("CountActive = %d (err %v), want 2", n, err)
	}
}

func TestTowerService_Get(t *testing.T) {
	s := newTestTowerService(&stubDirectory{towers: []models.Tower{{ID: "T1", Name: "Torre Norte"}}}, &stubCache{}, &stubWorkers{})

	got, err := s.Get(context.Background(), "T1")
	if err != nil || got.Name != "Torre Norte" {
		t.Fatalf("Get = %+v (err %v)", got, err)
	}
	if _, err := s.Get(context.Background(), "T9"); !errors.Is(err, ErrTowerNotFound) {
		t.Fatalf("expected ErrTowerNotFound, got %v", err)
	}
}
