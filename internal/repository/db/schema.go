package db

import (
	"fmt"
	"sort"
	"strings"
)

// Column type affinities used by the mirror.
const (
	TypeText      = "TEXT"
	TypeReal      = "REAL"
	TypeInteger   = "INTEGER"
	TypeNumeric   = "NUMERIC"
	TypeBoolean   = "BOOLEAN"
	TypeTimestamp = "TIMESTAMP"
	TypeJSON      = "JSON" // stored as serialized TEXT
)

type Column struct {
	Name       string
	Type       string
	PrimaryKey bool
	NotNull    bool
	Unique     bool
}

// Table is the declared shape of one mirrored table.
type Table struct {
	Name      string
	Columns   []Column
	Indexes   [][]string
	LocalOnly bool // exists only in the mirror, never reconciled
}

// PrimaryKey returns the name of the primary-key column.
func (t Table) PrimaryKey() string {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return ""
}

// Column looks up a declared column by name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// DDL renders the CREATE TABLE and CREATE INDEX statements for t.
func (t Table) DDL() []string {
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		typ := c.Type
		if typ == TypeJSON {
			typ = TypeText
		}
		def := fmt.Sprintf("%q %s", c.Name, typ)
		if c.PrimaryKey {
			def += " PRIMARY KEY"
			if typ == TypeInteger {
				def += " AUTOINCREMENT"
			}
		}
		if c.Unique {
			def += " UNIQUE"
		}
		if c.NotNull {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (\n    %s\n);", t.Name, strings.Join(defs, ",\n    ")),
	}
	for _, cols := range t.Indexes {
		quoted := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = fmt.Sprintf("%q", c)
		}
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %q ON %q (%s);",
			"idx_"+t.Name+"_"+strings.Join(cols, "_"), t.Name, strings.Join(quoted, ", ")))
	}
	return stmts
}

var tables = map[string]Table{
	"torres": {
		Name: "torres",
		Columns: []Column{
			{Name: "id_torre", Type: TypeText, PrimaryKey: true},
			{Name: "nombre", Type: TypeText, NotNull: true},
			{Name: "ubicacion", Type: TypeJSON},
			{Name: "usuario_asignado", Type: TypeText},
			{Name: "estado", Type: TypeText},
			{Name: "fecha_creacion", Type: TypeTimestamp},
			{Name: "ultima_actualizacion", Type: TypeTimestamp},
			{Name: "notas", Type: TypeText},
			{Name: "origen_datos", Type: TypeText},
		},
	},
	"profiles": {
		Name: "profiles",
		Columns: []Column{
			{Name: "id", Type: TypeText, PrimaryKey: true},
			{Name: "name", Type: TypeText},
			{Name: "lastname", Type: TypeText},
			{Name: "updated_at", Type: TypeTimestamp},
			{Name: "active", Type: TypeBoolean},
			{Name: "role", Type: TypeText},
		},
	},
	"payments": {
		Name: "payments",
		Columns: []Column{
			{Name: "id", Type: TypeText, PrimaryKey: true},
			{Name: "user_id", Type: TypeText},
			{Name: "amount", Type: TypeNumeric},
			{Name: "payment_date", Type: TypeTimestamp},
			{Name: "method", Type: TypeText},
			{Name: "status", Type: TypeText},
			{Name: "expires_at", Type: TypeTimestamp},
		},
	},
	// Readings carry no foreign key: a reading may reference a tower the
	// mirror has not reconciled yet.
	"datos_meteorologicos": {
		Name: "datos_meteorologicos",
		Columns: []Column{
			{Name: "id_dato", Type: TypeText, PrimaryKey: true},
			{Name: "id_torre", Type: TypeText, NotNull: true},
			{Name: "timestamp", Type: TypeTimestamp, NotNull: true},
			{Name: "temperatura", Type: TypeReal},
			{Name: "humedad_relativa", Type: TypeReal},
			{Name: "presion_atmosferica", Type: TypeReal},
			{Name: "velocidad_viento", Type: TypeReal},
			{Name: "direccion_viento", Type: TypeInteger},
			{Name: "precipitacion", Type: TypeReal},
			{Name: "radiacion_solar", Type: TypeReal},
			{Name: "indice_uv", Type: TypeInteger},
		},
		Indexes: [][]string{{"id_torre", "timestamp"}},
	},
	"diagnostico_tecnico": {
		Name: "diagnostico_tecnico",
		Columns: []Column{
			{Name: "id_diagnostico", Type: TypeText, PrimaryKey: true},
			{Name: "id_torre", Type: TypeText, NotNull: true},
			{Name: "timestamp", Type: TypeTimestamp, NotNull: true},
			{Name: "nivel_bateria", Type: TypeReal},
			{Name: "tiempo_ultima_conexion", Type: TypeTimestamp},
			{Name: "estado_sensor_temperatura", Type: TypeText},
			{Name: "estado_sensor_humedad", Type: TypeText},
			{Name: "estado_general", Type: TypeText},
		},
		Indexes: [][]string{{"id_torre", "timestamp"}},
	},
	"operators": {
		Name:      "operators",
		LocalOnly: true,
		Columns: []Column{
			{Name: "id", Type: TypeInteger, PrimaryKey: true},
			{Name: "username", Type: TypeText, Unique: true, NotNull: true},
			{Name: "password_hash", Type: TypeText, NotNull: true},
		},
	},
}

// LookupTable returns the declared schema of a mirrored table.
func LookupTable(name string) (Table, bool) {
	t, ok := tables[name]
	return t, ok
}

// TableNames lists every declared table, sorted.
func TableNames() []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
