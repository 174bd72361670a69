package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"tower_monitoring/internal/models"
	"tower_monitoring/internal/repository"
	"tower_monitoring/internal/repository/cache"
	"tower_monitoring/internal/repository/remote"
)

// stubStore is an in-memory remote.Store. insertErrs are returned by
// successive Insert calls before inserts start to succeed.
type stubStore struct {
	mu         sync.Mutex
	insertErrs []error
	inserts    []map[string]any
	tables     map[string][]map[string]any
	selectErr  error
	selects    int
}

func (s *stubStore) Insert(_ context.Context, table string, row map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.insertErrs) > 0 {
		err := s.insertErrs[0]
		s.insertErrs = s.insertErrs[1:]
		return nil, err
	}
	stored := make(map[string]any, len(row)+1)
	for k, v := range row {
		stored[k] = v
	}
	stored["_table"] = table
	s.inserts = append(s.inserts, stored)
	return stored, nil
}

func (s *stubStore) Select(_ context.Context, table string, _ ...remote.Filter) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selects++
	if s.selectErr != nil {
		return nil, s.selectErr
	}
	var out []map[string]any
	for _, row := range s.tables[table] {
		cp := make(map[string]any, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out, nil
}

func (s *stubStore) Update(context.Context, string, map[string]any, ...remote.Filter) ([]map[string]any, error) {
	return nil, errors.New("not implemented")
}

func (s *stubStore) Count(context.Context, string, ...remote.Filter) (int, error) {
	return 0, errors.New("not implemented")
}

func (s *stubStore) Ping(context.Context) error { return nil }
func (s *stubStore) Close()                     {}

func (s *stubStore) insertedInto(table string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]any
	for _, row := range s.inserts {
		if row["_table"] == table {
			out = append(out, row)
		}
	}
	return out
}

type mirrorInsert struct {
	table string
	row   map[string]any
}

type stubMirror struct {
	mu      sync.Mutex
	err     error
	inserts []mirrorInsert
}

func (m *stubMirror) InsertOne(_ context.Context, table string, row map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.inserts = append(m.inserts, mirrorInsert{table: table, row: row})
	return nil
}

func (m *stubMirror) Begin(context.Context) (repository.MirrorTx, error) {
	return nil, errors.New("not implemented")
}

func (m *stubMirror) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inserts)
}

type published struct {
	channel string
	payload []byte
}

// stubCache implements LatestCache, ChannelPublisher and ChannelSubscriber.
type stubCache struct {
	mu         sync.Mutex
	setErr     error
	publishErr error
	latest     map[string][]byte
	published  []published
	feed       chan []byte
}

func (c *stubCache) SetLatest(ctx context.Context, towerID string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	if c.latest == nil {
		c.latest = make(map[string][]byte)
	}
	c.latest[towerID] = payload
	return nil
}

func (c *stubCache) Latest(_ context.Context, towerID string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.latest[towerID]
	if !ok {
		return nil, cache.ErrMiss
	}
	return p, nil
}

func (c *stubCache) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, published{channel: channel, payload: payload})
	return nil
}

func (c *stubCache) Subscribe(_ context.Context, pattern string) (<-chan []byte, error) {
	if pattern != cache.AlertPattern {
		return nil, errors.New("unexpected pattern " + pattern)
	}
	return c.feed, nil
}

func (c *stubCache) publishedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published)
}

type stubSeries struct {
	err  error
	rows []map[string]any
}

func (s *stubSeries) Write(_ context.Context, row map[string]any) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, row)
	return nil
}

type stubTowerPublisher struct {
	err      error
	towerIDs []string
}

func (p *stubTowerPublisher) Publish(_ context.Context, towerID string, _ []byte) error {
	p.towerIDs = append(p.towerIDs, towerID)
	return p.err
}

// stubDirectory is an in-memory TowerDirectory.
type stubDirectory struct {
	mu        sync.Mutex
	towers    []models.Tower
	activeErr error
	createErr error
	created   []models.Tower
}

func (d *stubDirectory) Active(context.Context) ([]models.Tower, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.activeErr != nil {
		return nil, d.activeErr
	}
	var out []models.Tower
	for _, t := range d.towers {
		if t.Schedulable() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (d *stubDirectory) List(context.Context) ([]models.Tower, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Tower(nil), d.towers...), nil
}

func (d *stubDirectory) ByUser(_ context.Context, userID string) ([]models.Tower, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.Tower
	for _, t := range d.towers {
		if t.AssignedUser != nil && *t.AssignedUser == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (d *stubDirectory) Get(_ context.Context, id string) (*models.Tower, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.towers {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (d *stubDirectory) Create(_ context.Context, t models.Tower) (models.Tower, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createErr != nil {
		return models.Tower{}, d.createErr
	}
	t.ID = "new-tower"
	d.created = append(d.created, t)
	d.towers = append(d.towers, t)
	return t, nil
}

func (d *stubDirectory) UpdateState(_ context.Context, id string, state models.TowerState, at time.Time) (*models.Tower, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.towers {
		if d.towers[i].ID == id {
			d.towers[i].State = state
			d.towers[i].UpdatedAt = at
			t := d.towers[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (d *stubDirectory) CountActive(context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, t := range d.towers {
		if t.State == models.TowerActive {
			n++
		}
	}
	return n, nil
}

func strPtr(s string) *string { return &s }
