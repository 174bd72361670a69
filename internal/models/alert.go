package models

import "time"

// Alert is published, never stored.
type Alert struct {
	TowerID    string            `json:"id_torre"`
	Timestamp  time.Time         `json:"timestamp"`
	Conditions []string          `json:"alertas"`
	Telemetry  TelemetryReading  `json:"datos"`
	Diagnostic DiagnosticReading `json:"diagnostico"`
}
