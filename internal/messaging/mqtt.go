// Package messaging publishes alerts to an MQTT broker.
package messaging

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // ms
)

type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

// NewMQTTPublisher connects to broker and returns a publisher for prefix/<tower>/alerts.
func NewMQTTPublisher(broker, clientID, prefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("%s-%d", clientID, time.Now().UnixNano())).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOrderMatters(false)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to mqtt broker %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, err)
	}
	return newMQTTPublisher(client, prefix), nil
}

func newMQTTPublisher(client mqtt.Client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix}
}

// Topic is the alert topic of a tower.
func (p *MQTTPublisher) Topic(towerID string) string {
	return fmt.Sprintf("%s/%s/alerts", p.prefix, towerID)
}

// Publish sends payload with QoS 0 and waits for the client to hand it off.
func (p *MQTTPublisher) Publish(ctx context.Context, towerID string, payload []byte) error {
	topic := p.Topic(towerID)
	token := p.client.Publish(topic, 0, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Ping(context.Context) error {
	if !p.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt connection is not open")
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(disconnectQuiesce)
}
