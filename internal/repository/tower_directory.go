package repository

import (
	"context"
	"fmt"
	"time"

	"tower_monitoring/internal/models"
	"tower_monitoring/internal/repository/remote"
)

const towersTable = "torres"

// TowerDirectory reads and writes towers in the authoritative store.
type TowerDirectory struct {
	store remote.Store
}

func NewTowerDirectory(store remote.Store) *TowerDirectory {
	return &TowerDirectory{store: store}
}

// Active returns towers that are active and assigned to a user.
func (d *TowerDirectory) Active(ctx context.Context) ([]models.Tower, error) {
	rows, err := d.store.Select(ctx, towersTable,
		remote.Eq("estado", string(models.TowerActive)),
		remote.NotNull("usuario_asignado"),
	)
	if err != nil {
		return nil, fmt.Errorf("select active towers: %w", err)
	}
	return towersFromRows(rows)
}

func (d *TowerDirectory) List(ctx context.Context) ([]models.Tower, error) {
	rows, err := d.store.Select(ctx, towersTable)
	if err != nil {
		return nil, fmt.Errorf("select towers: %w", err)
	}
	return towersFromRows(rows)
}

// ByUser returns the towers assigned to userID.
func (d *TowerDirectory) ByUser(ctx context.Context, userID string) ([]models.Tower, error) {
	rows, err := d.store.Select(ctx, towersTable, remote.Eq("usuario_asignado", userID))
	if err != nil {
		return nil, fmt.Errorf("select towers of user %q: %w", userID, err)
	}
	return towersFromRows(rows)
}

// Get returns (nil, nil) when the tower does not exist.
func (d *TowerDirectory) Get(ctx context.Context, id string) (*models.Tower, error) {
	rows, err := d.store.Select(ctx, towersTable, remote.Eq("id_torre", id))
	if err != nil {
		return nil, fmt.Errorf("select tower %q: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	t, err := models.TowerFromRow(rows[0])
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *TowerDirectory) Create(ctx context.Context, t models.Tower) (models.Tower, error) {
	row, err := d.store.Insert(ctx, towersTable, t.Columns())
	if err != nil {
		return models.Tower{}, fmt.Errorf("insert tower %q: %w", t.Name, err)
	}
	return models.TowerFromRow(row)
}

// UpdateState sets estado and ultima_actualizacion. Returns (nil, nil) when no row matched.
func (d *TowerDirectory) UpdateState(ctx context.Context, id string, state models.TowerState, at time.Time) (*models.Tower, error) {
	rows, err := d.store.Update(ctx, towersTable, map[string]any{
		"estado":               string(state),
		"ultima_actualizacion": models.FormatTime(at),
	}, remote.Eq("id_torre", id))
	if err != nil {
		return nil, fmt.Errorf("update state of tower %q: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	t, err := models.TowerFromRow(rows[0])
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CountActive counts towers in the active state.
func (d *TowerDirectory) CountActive(ctx context.Context) (int, error) {
	n, err := d.store.Count(ctx, towersTable, remote.Eq("estado", string(models.TowerActive)))
	if err != nil {
		return 0, fmt.Errorf("count active towers: %w", err)
	}
	return n, nil
}

func towersFromRows(rows []map[string]any) ([]models.Tower, error) {
	towers := make([]models.Tower, 0, len(rows))
	for _, row := range rows {
		t, err := models.TowerFromRow(row)
		if err != nil {
			return nil, err
		}
		towers = append(towers, t)
	}
	return towers, nil
}
