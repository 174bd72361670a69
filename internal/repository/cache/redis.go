// Package cache is the fast tier: latest value per tower with a bounded
// expiry, plus the pub/sub channel alerts travel on.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrMiss is returned by Latest when no value is cached for the tower.
var ErrMiss = errors.New("cache miss")

// LatestKey is the key holding the last telemetry reading of a tower.
func LatestKey(towerID string) string {
	return fmt.Sprintf("torre:%s:last_data", towerID)
}

// AlertChannel is the channel alerts of a tower are published on.
func AlertChannel(towerID string) string {
	return "alertas:" + towerID
}

// AlertPattern matches every tower's alert channel.
const AlertPattern = "alertas:*"

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects lazily; call Ping to verify the server is reachable.
func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("latest ttl must be positive, got %v", ttl)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts), ttl: ttl}, nil
}

// SetLatest overwrites the tower's latest value.
func (r *Redis) SetLatest(ctx context.Context, towerID string, payload []byte) error {
	if err := r.client.Set(ctx, LatestKey(towerID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", LatestKey(towerID), err)
	}
	return nil
}

func (r *Redis) Latest(ctx context.Context, towerID string) ([]byte, error) {
	b, err := r.client.Get(ctx, LatestKey(towerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", LatestKey(towerID), err)
	}
	return b, nil
}

func (r *Redis) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe streams messages on channels matching pattern until ctx is done.
// The returned channel is closed when the subscription ends.
func (r *Redis) Subscribe(ctx context.Context, pattern string) (<-chan []byte, error) {
	sub := r.client.PSubscribe(ctx, pattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("psubscribe %s: %w", pattern, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
