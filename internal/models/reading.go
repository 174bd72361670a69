package models

import "time"

// SensorStatus is the self-reported state of a single sensor.
type SensorStatus string

const (
	SensorOK    SensorStatus = "OK"
	SensorError SensorStatus = "Error"
)

// OverallStatus is derived once, when a diagnostic reading is generated.
type OverallStatus string

const (
	StatusNormal   OverallStatus = "Normal"
	StatusAlert    OverallStatus = "Alerta"
	StatusCritical OverallStatus = "Crítico"
)

// TelemetryReading is one weather sample from a tower.
type TelemetryReading struct {
	ID             string    `json:"id_dato,omitempty"`
	TowerID        string    `json:"id_torre"`
	Timestamp      time.Time `json:"timestamp"`
	Temperature    float64   `json:"temperatura"`         // °C
	Humidity       float64   `json:"humedad_relativa"`    // %
	Pressure       float64   `json:"presion_atmosferica"` // hPa
	WindSpeed      float64   `json:"velocidad_viento"`    // km/h
	WindDirection  int       `json:"direccion_viento"`    // degrees
	Precipitation  float64   `json:"precipitacion"`       // mm
	SolarRadiation float64   `json:"radiacion_solar"`     // W/m²
	UVIndex        int       `json:"indice_uv"`
}

// Columns returns the reading keyed by authoritative column name.
func (r TelemetryReading) Columns() map[string]any {
	cols := map[string]any{
		"id_torre":            r.TowerID,
		"timestamp":           r.Timestamp,
		"temperatura":         r.Temperature,
		"humedad_relativa":    r.Humidity,
		"presion_atmosferica": r.Pressure,
		"velocidad_viento":    r.WindSpeed,
		"direccion_viento":    r.WindDirection,
		"precipitacion":       r.Precipitation,
		"radiacion_solar":     r.SolarRadiation,
		"indice_uv":           r.UVIndex,
	}
	if r.ID != "" {
		cols["id_dato"] = r.ID
	}
	return cols
}

// DiagnosticReading is one technical self-check from a tower.
type DiagnosticReading struct {
	ID                string        `json:"id_diagnostico,omitempty"`
	TowerID           string        `json:"id_torre"`
	Timestamp         time.Time     `json:"timestamp"`
	BatteryLevel      float64       `json:"nivel_bateria"`
	LastContact       time.Time     `json:"tiempo_ultima_conexion"`
	TemperatureSensor SensorStatus  `json:"estado_sensor_temperatura"`
	HumiditySensor    SensorStatus  `json:"estado_sensor_humedad"`
	Overall           OverallStatus `json:"estado_general"`
}

func (d DiagnosticReading) Columns() map[string]any {
	cols := map[string]any{
		"id_torre":                  d.TowerID,
		"timestamp":                 d.Timestamp,
		"nivel_bateria":             d.BatteryLevel,
		"tiempo_ultima_conexion":    d.LastContact,
		"estado_sensor_temperatura": string(d.TemperatureSensor),
		"estado_sensor_humedad":     string(d.HumiditySensor),
		"estado_general":            string(d.Overall),
	}
	if d.ID != "" {
		cols["id_diagnostico"] = d.ID
	}
	return cols
}

// SensorsOK reports whether every sensor is healthy.
func (d DiagnosticReading) SensorsOK() bool {
	return d.TemperatureSensor != SensorError && d.HumiditySensor != SensorError
}
