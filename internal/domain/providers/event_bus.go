package providers

import (
	"context"

	"github.com/medhaus/clinicflow/internal/domain/entities"
)

// EventBus publishes operational queue events for external integrations.
// It is strictly fire-and-forget from the queue's perspective: publishing
// happens outside the critical section and a bus failure never blocks or
// fails the originating mutation.
type EventBus interface {
	// Publish publishes an event to all external subscribers.
	Publish(ctx context.Context, channel string, event *entities.QueueEvent) error

	// Close closes the event bus.
	Close() error
}

// EventChannelQueue is the channel carrying all queue lifecycle events.
const EventChannelQueue = "queue:events"
