package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/medhaus/clinicflow/internal/domain/entities"
	"github.com/medhaus/clinicflow/internal/domain/providers"
	redisclient "github.com/medhaus/clinicflow/internal/infrastructure/clients/redis"
	"github.com/medhaus/clinicflow/internal/infrastructure/observability"
)

// RedisEventBus implements the EventBus interface using Redis Pub/Sub.
// Publish-only: connected viewers are served by the in-process broadcast,
// this feed exists for external consumers (analytics, notifications).
type RedisEventBus struct {
	client *redisclient.Client
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	return &RedisEventBus{client: client}
}

// Publish publishes an event to the channel. Failure here never affects
// the originating queue operation.
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.QueueEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	observability.GetLogger().Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Msg("events: published")
	return nil
}

// Close closes the event bus.
func (b *RedisEventBus) Close() error {
	return nil
}
