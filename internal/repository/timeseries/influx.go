// Package timeseries is an optional InfluxDB sink for telemetry.
package timeseries

import (
	"context"
	"fmt"
	"time"

	"tower_monitoring/internal/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	measurement = "datos_meteorologicos"
	towerTag    = "id_torre"
)

type Influx struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

func NewInflux(url, token, org, bucket string) *Influx {
	client := influxdb2.NewClient(url, token)
	return &Influx{client: client, writer: client.WriteAPIBlocking(org, bucket)}
}

// Write stores one telemetry row as a point tagged by tower.
func (i *Influx) Write(ctx context.Context, row map[string]any) error {
	p, err := telemetryPoint(row)
	if err != nil {
		return err
	}
	if err := i.writer.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("write point for %v: %w", row[towerTag], err)
	}
	return nil
}

func (i *Influx) Ping(ctx context.Context) error {
	health, err := i.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("influx health: %w", err)
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influx health %s: %s", health.Status, msg)
	}
	return nil
}

func (i *Influx) Close() {
	i.client.Close()
}

// telemetryPoint keeps every numeric column as a field; the tower id is the only tag.
func telemetryPoint(row map[string]any) (*write.Point, error) {
	tower, _ := row[towerTag].(string)
	if tower == "" {
		return nil, fmt.Errorf("telemetry row without %s", towerTag)
	}
	ts := time.Now().UTC()
	if v, ok := row["timestamp"]; ok {
		parsed, err := models.ParseTime(v)
		if err != nil {
			return nil, err
		}
		ts = parsed
	}

	fields := make(map[string]any)
	for k, v := range row {
		switch x := v.(type) {
		case float64, float32, int, int32, int64:
			fields[k] = x
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("telemetry row for %s has no numeric fields", tower)
	}
	return influxdb2.NewPoint(measurement, map[string]string{towerTag: tower}, fields, ts), nil
}
