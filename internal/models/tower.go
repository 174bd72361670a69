package models

import (
	"fmt"
	"time"
)

// TowerState is the operational state of a tower.
type TowerState string

const (
	TowerActive      TowerState = "Activa"
	TowerInactive    TowerState = "Inactiva"
	TowerMaintenance TowerState = "Mantenimiento"
)

// Tower is a remote monitoring unit.
type Tower struct {
	ID           string         `json:"id_torre"`
	Name         string         `json:"nombre"`
	Location     map[string]any `json:"ubicacion"`
	AssignedUser *string        `json:"usuario_asignado"`
	State        TowerState     `json:"estado"`
	CreatedAt    time.Time      `json:"fecha_creacion"`
	UpdatedAt    time.Time      `json:"ultima_actualizacion"`
	Notes        string         `json:"notas,omitempty"`
	DataSource   string         `json:"origen_datos"`
}

// Schedulable reports whether a worker should run for the tower.
func (t Tower) Schedulable() bool {
	return t.State == TowerActive && t.AssignedUser != nil && *t.AssignedUser != ""
}

// Columns returns the tower keyed by authoritative column name, timestamps as ISO-8601 text.
func (t Tower) Columns() map[string]any {
	cols := map[string]any{
		"nombre":               t.Name,
		"ubicacion":            t.Location,
		"estado":               string(t.State),
		"fecha_creacion":       FormatTime(t.CreatedAt),
		"ultima_actualizacion": FormatTime(t.UpdatedAt),
		"origen_datos":         t.DataSource,
	}
	if t.ID != "" {
		cols["id_torre"] = t.ID
	}
	if t.AssignedUser != nil {
		cols["usuario_asignado"] = *t.AssignedUser
	}
	if t.Notes != "" {
		cols["notas"] = t.Notes
	}
	return cols
}

// TowerFromRow builds a Tower from an authoritative row.
// Unparseable timestamps are left zero.
func TowerFromRow(row map[string]any) (Tower, error) {
	id := fmt.Sprint(row["id_torre"])
	if row["id_torre"] == nil || id == "" {
		return Tower{}, fmt.Errorf("tower row without id_torre")
	}
	t := Tower{
		ID:         id,
		Name:       stringValue(row["nombre"]),
		State:      TowerState(stringValue(row["estado"])),
		Notes:      stringValue(row["notas"]),
		DataSource: stringValue(row["origen_datos"]),
	}
	if loc, ok := row["ubicacion"].(map[string]any); ok {
		t.Location = loc
	}
	if u := stringValue(row["usuario_asignado"]); u != "" {
		t.AssignedUser = &u
	}
	if ts, err := ParseTime(row["fecha_creacion"]); err == nil {
		t.CreatedAt = ts
	}
	if ts, err := ParseTime(row["ultima_actualizacion"]); err == nil {
		t.UpdatedAt = ts
	}
	return t, nil
}

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
