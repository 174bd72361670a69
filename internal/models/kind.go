package models

import (
	"fmt"
	"strings"
)

// RecordKind selects the table/model mapping a reading is stored under.
type RecordKind string

const (
	KindTelemetry  RecordKind = "telemetry"
	KindDiagnostic RecordKind = "diagnostic"
)

// KindSpec describes how a record kind maps onto the storage tiers.
type KindSpec struct {
	Table       string   // table name in both the authoritative store and the mirror
	IDColumn    string   // generated when absent
	Required    []string // must be present and non-empty
	DateColumns []string // parsed before mirror insertion, ISO-8601 text towards the authoritative store
	Cached      bool     // latest value kept in the fast cache
}

var kinds = map[RecordKind]KindSpec{
	KindTelemetry: {
		Table:       "datos_meteorologicos",
		IDColumn:    "id_dato",
		Required:    []string{"id_torre", "temperatura", "humedad_relativa"},
		DateColumns: []string{"timestamp"},
		Cached:      true,
	},
	KindDiagnostic: {
		Table:       "diagnostico_tecnico",
		IDColumn:    "id_diagnostico",
		Required:    []string{"id_torre", "nivel_bateria", "estado_general"},
		DateColumns: []string{"timestamp", "tiempo_ultima_conexion"},
	},
}

// LookupKind returns the storage mapping for kind.
func LookupKind(kind RecordKind) (KindSpec, bool) {
	spec, ok := kinds[kind]
	return spec, ok
}

// MissingFieldError reports required fields absent from a record.
type MissingFieldError struct {
	Kind   RecordKind
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s record is missing required fields: %s", e.Kind, strings.Join(e.Fields, ", "))
}

// ValidateRequired checks that every required field of kind is present in data.
// Nil values and blank strings count as missing.
func ValidateRequired(kind RecordKind, data map[string]any) error {
	spec, ok := kinds[kind]
	if !ok {
		return fmt.Errorf("unknown record kind %q", kind)
	}
	var missing []string
	for _, field := range spec.Required {
		if isBlank(data[field]) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldError{Kind: kind, Fields: missing}
	}
	return nil
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}
