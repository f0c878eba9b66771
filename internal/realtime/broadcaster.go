package realtime

import (
	"context"
	"sync"

	"github.com/medhaus/clinicflow/internal/domain/entities"
	"github.com/medhaus/clinicflow/internal/infrastructure/observability"
)

const subscriberBuffer = 8

// Subscriber is one connected queue viewer. Receive from C; a closed C
// means the subscriber was dropped for falling behind or the broadcaster
// shut down.
type Subscriber struct {
	ch     chan *entities.QueueSnapshot
	closed bool
}

// C returns the snapshot channel.
func (s *Subscriber) C() <-chan *entities.QueueSnapshot {
	return s.ch
}

// Broadcaster fans complete queue snapshots out to all subscribers.
// Every send is non-blocking: a subscriber whose buffer is full is
// dropped rather than allowed to stall the publisher. New subscribers
// immediately receive the latest snapshot, so no catch-up protocol is
// needed.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[*Subscriber]struct{}
	latest  *entities.QueueSnapshot
	metrics *observability.Metrics
	stopped bool
}

// NewBroadcaster creates an empty broadcaster. Metrics may be nil.
func NewBroadcaster(metrics *observability.Metrics) *Broadcaster {
	return &Broadcaster{
		subs:    make(map[*Subscriber]struct{}),
		metrics: metrics,
	}
}

// Subscribe registers a viewer. The latest known snapshot, if any, is
// already in the channel when this returns.
func (b *Broadcaster) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan *entities.QueueSnapshot, subscriberBuffer)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		sub.closed = true
		close(sub.ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	if b.latest != nil {
		sub.ch <- b.latest
	}
	return sub
}

// Unsubscribe removes a viewer. Safe to call after the viewer has been
// dropped.
func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(sub)
}

// Publish delivers a snapshot to every subscriber without blocking.
// Subscribers that cannot keep up are disconnected and must resubscribe
// for a fresh snapshot.
func (b *Broadcaster) Publish(snapshot *entities.QueueSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.latest = snapshot

	for sub := range b.subs {
		select {
		case sub.ch <- snapshot:
		default:
			b.removeLocked(sub)
			if b.metrics != nil {
				b.metrics.BroadcastDropped.Add(context.Background(), 1)
			}
			observability.GetLogger().Warn().Msg("realtime: dropped slow subscriber")
		}
	}
}

// Latest returns the most recently published snapshot, or nil.
func (b *Broadcaster) Latest() *entities.QueueSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// SubscriberCount returns the number of connected viewers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close disconnects all subscribers and rejects new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	for sub := range b.subs {
		b.removeLocked(sub)
	}
}

func (b *Broadcaster) removeLocked(sub *Subscriber) {
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}
