package service

import (
	"context"
	"time"

	"tower_monitoring/internal/models"
	"tower_monitoring/internal/repository"
)

// Mirror is the local durable copy the writer and the reconciler fill.
type Mirror interface {
	InsertOne(ctx context.Context, table string, row map[string]any) error
	Begin(ctx context.Context) (repository.MirrorTx, error)
}

// LatestCache keeps the latest telemetry per tower.
type LatestCache interface {
	SetLatest(ctx context.Context, towerID string, payload []byte) error
	Latest(ctx context.Context, towerID string) ([]byte, error)
}

// PointWriter is an optional time-series sink for telemetry rows.
type PointWriter interface {
	Write(ctx context.Context, row map[string]any) error
}

// ChannelPublisher publishes on a named pub/sub channel.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// TowerPublisher publishes on a per-tower topic.
type TowerPublisher interface {
	Publish(ctx context.Context, towerID string, payload []byte) error
}

// ChannelSubscriber streams messages from channels matching a pattern.
type ChannelSubscriber interface {
	Subscribe(ctx context.Context, pattern string) (<-chan []byte, error)
}

// TowerDirectory is tower access in the authoritative store.
type TowerDirectory interface {
	Active(ctx context.Context) ([]models.Tower, error)
	List(ctx context.Context) ([]models.Tower, error)
	ByUser(ctx context.Context, userID string) ([]models.Tower, error)
	Get(ctx context.Context, id string) (*models.Tower, error)
	Create(ctx context.Context, t models.Tower) (models.Tower, error)
	UpdateState(ctx context.Context, id string, state models.TowerState, at time.Time) (*models.Tower, error)
	CountActive(ctx context.Context) (int, error)
}
