package service

import (
	"context"
	"fmt"
	"time"

	"tower_monitoring/internal/logger"
	"tower_monitoring/internal/metrics"
	"tower_monitoring/internal/models"
	"tower_monitoring/internal/repository/cache"
)

// Alert channel labels for metrics.
const (
	channelRedis = "redis"
	channelMQTT  = "mqtt"
)

type Thresholds struct {
	TemperatureHigh float64
	TemperatureLow  float64
	HumidityHigh    float64
	BatteryLow      float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		TemperatureHigh: 35,
		TemperatureLow:  5,
		HumidityHigh:    90,
		BatteryLow:      20,
	}
}

// EvaluateAlerts returns the alert conditions met by a reading pair, in a fixed
// order. At most one temperature alert is produced.
func EvaluateAlerts(t models.TelemetryReading, d models.DiagnosticReading, th Thresholds) []string {
	var alerts []string

	if t.Temperature > th.TemperatureHigh {
		alerts = append(alerts, fmt.Sprintf("Temperatura alta: %.1f°C", t.Temperature))
	} else if t.Temperature < th.TemperatureLow {
		alerts = append(alerts, fmt.Sprintf("Temperatura baja: %.1f°C", t.Temperature))
	}
	if t.Humidity > th.HumidityHigh {
		alerts = append(alerts, fmt.Sprintf("Humedad alta: %.1f%%", t.Humidity))
	}
	if d.BatteryLevel < th.BatteryLow {
		alerts = append(alerts, fmt.Sprintf("Batería crítica: %.1f%%", d.BatteryLevel))
	}
	if d.Overall == models.StatusCritical {
		alerts = append(alerts, "Estado CRÍTICO de la torre")
	}
	return alerts
}

// AlertPublisher emits alerts on the cache pub/sub channel of the tower and,
// when configured, on the MQTT broker. Failures are logged, never returned.
type AlertPublisher struct {
	redis      ChannelPublisher
	mqtt       TowerPublisher // optional
	subscriber ChannelSubscriber
	metrics    *metrics.Metrics
	log        *logger.Logger
	now        func() time.Time
}

func NewAlertPublisher(redis ChannelPublisher, mqtt TowerPublisher, subscriber ChannelSubscriber, m *metrics.Metrics, log *logger.Logger) *AlertPublisher {
	return &AlertPublisher{
		redis:      redis,
		mqtt:       mqtt,
		subscriber: subscriber,
		metrics:    m,
		log:        log,
		now:        time.Now,
	}
}

// Publish is a no-op for an empty alert list.
func (p *AlertPublisher) Publish(ctx context.Context, towerID string, alerts []string, t models.TelemetryReading, d models.DiagnosticReading) {
	if len(alerts) == 0 {
		return
	}
	payload, err := json.Marshal(models.Alert{
		TowerID:    towerID,
		Timestamp:  p.now().UTC(),
		Conditions: alerts,
		Telemetry:  t,
		Diagnostic: d,
	})
	if err != nil {
		p.log.Errorw("alert_encode_failed", "tower", towerID, "err", err)
		return
	}

	p.log.Warnw("alert_raised", "tower", towerID, "alerts", alerts)

	err = p.redis.Publish(ctx, cache.AlertChannel(towerID), payload)
	p.record(channelRedis, towerID, err)

	if p.mqtt != nil {
		err = p.mqtt.Publish(ctx, towerID, payload)
		p.record(channelMQTT, towerID, err)
	}
}

// Subscribe relays alert messages of every tower until ctx is done.
func (p *AlertPublisher) Subscribe(ctx context.Context) (<-chan []byte, error) {
	return p.subscriber.Subscribe(ctx, cache.AlertPattern)
}

func (p *AlertPublisher) record(channel, towerID string, err error) {
	p.metrics.AlertsPublished.WithLabelValues(channel, metrics.Result(err == nil)).Inc()
	if err != nil {
		p.log.Errorw("alert_publish_failed", "channel", channel, "tower", towerID, "err", err)
	}
}
