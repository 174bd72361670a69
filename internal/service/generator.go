package service

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"tower_monitoring/internal/models"
)

// ----------- Simulated sensor ranges -----------
const (
	minTemperatureC, maxTemperatureC = 10.0, 35.0
	minHumidityPct, maxHumidityPct   = 30.0, 90.0
	minPressureHPa, maxPressureHPa   = 950.0, 1050.0
	maxWindSpeedKmh                  = 20.0
	maxWindDirectionDeg              = 360
	maxPrecipitationMm               = 10.0
	minRadiationWm2, maxRadiationWm2 = 100.0, 1000.0
	maxUVIndex                       = 11

	minBatteryPct, maxBatteryPct = 10.0, 100.0
	maxLastContactMinutes        = 30

	sensorErrorRate = 0.05
	alertShare      = 0.7 // of degraded diagnostics; the rest are Crítico

	// battery level under which a diagnostic is degraded at generation time
	degradedBatteryPct = 20.0
)

// ReadingGenerator produces simulated readings. Safe for concurrent use.
type ReadingGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewReadingGenerator() *ReadingGenerator {
	return newReadingGenerator(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), time.Now)
}

func newReadingGenerator(rng *rand.Rand, now func() time.Time) *ReadingGenerator {
	return &ReadingGenerator{rng: rng, now: now}
}

// Telemetry returns one weather sample for towerID stamped with the current time.
func (g *ReadingGenerator) Telemetry(towerID string) models.TelemetryReading {
	g.mu.Lock()
	defer g.mu.Unlock()

	return models.TelemetryReading{
		TowerID:        towerID,
		Timestamp:      g.now().UTC(),
		Temperature:    g.uniform(minTemperatureC, maxTemperatureC),
		Humidity:       g.uniform(minHumidityPct, maxHumidityPct),
		Pressure:       g.uniform(minPressureHPa, maxPressureHPa),
		WindSpeed:      g.uniform(0, maxWindSpeedKmh),
		WindDirection:  g.rng.IntN(maxWindDirectionDeg + 1),
		Precipitation:  g.uniform(0, maxPrecipitationMm),
		SolarRadiation: g.uniform(minRadiationWm2, maxRadiationWm2),
		UVIndex:        g.rng.IntN(maxUVIndex + 1),
	}
}

// Diagnostic returns one self-check for towerID. The overall status is derived here and never re-derived.
func (g *ReadingGenerator) Diagnostic(towerID string) models.DiagnosticReading {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UTC()
	d := models.DiagnosticReading{
		TowerID:           towerID,
		Timestamp:         now,
		BatteryLevel:      g.uniform(minBatteryPct, maxBatteryPct),
		LastContact:       now.Add(-time.Duration(1+g.rng.IntN(maxLastContactMinutes)) * time.Minute),
		TemperatureSensor: g.sensor(),
		HumiditySensor:    g.sensor(),
	}
	d.Overall = overallStatus(d.BatteryLevel, d.SensorsOK(), g.rng.Float64())
	return d
}

// overallStatus derives the diagnostic status; pick is uniform in [0,1).
func overallStatus(battery float64, sensorsOK bool, pick float64) models.OverallStatus {
	if battery >= degradedBatteryPct && sensorsOK {
		return models.StatusNormal
	}
	if pick < alertShare {
		return models.StatusAlert
	}
	return models.StatusCritical
}

func (g *ReadingGenerator) sensor() models.SensorStatus {
	if g.rng.Float64() < sensorErrorRate {
		return models.SensorError
	}
	return models.SensorOK
}

// uniform returns a value in [lo, hi] rounded to two decimals.
func (g *ReadingGenerator) uniform(lo, hi float64) float64 {
	return math.Round((lo+g.rng.Float64()*(hi-lo))*100) / 100
}
