package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBus publishes JSON envelopes on Redis pub/sub channels named prefix+topic.
// The client is owned by the caller.
type RedisBus struct {
	client redis.UniversalClient
	prefix string
}

var _ Bus = (*RedisBus)(nil)

func NewRedisBus(client redis.UniversalClient, prefix string) *RedisBus {
	return &RedisBus{client: client, prefix: prefix}
}

func (b *RedisBus) Connect(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("RedisBus.Connect: %w", err)
	}
	return nil
}

func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("RedisBus.Publish marshal: %w", err)
	}
	if err := b.client.Publish(ctx, b.Channel(event.EventType), data).Err(); err != nil {
		return fmt.Errorf("RedisBus.Publish: %w", err)
	}
	return nil
}

func (b *RedisBus) Close() error {
	return nil
}

func (b *RedisBus) Channel(topic string) string {
	return b.prefix + topic
}
