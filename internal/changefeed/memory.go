package changefeed

import (
	"context"
	"log"
	"sync"
)

// MemoryFeed is a channel-backed feed for tests and redis-less development.
// It preserves the transport contract the reconciler depends on: at-least-once
// delivery with redelivery on handler error, no ordering promise.
type MemoryFeed struct {
	mu            sync.Mutex
	queue         chan delivery
	maxDeliveries int
}

type delivery struct {
	ev       Event
	attempts int
}

func NewMemoryFeed(buffer, maxDeliveries int) *MemoryFeed {
	if buffer <= 0 {
		buffer = 256
	}
	if maxDeliveries <= 0 {
		maxDeliveries = 5
	}
	return &MemoryFeed{
		queue:         make(chan delivery, buffer),
		maxDeliveries: maxDeliveries,
	}
}

func (f *MemoryFeed) Publish(ctx context.Context, ev Event) error {
	select {
	case f.queue <- delivery{ev: ev}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes until ctx is cancelled. Failed deliveries are re-enqueued up
// to the delivery cap, mirroring the stream consumer's parking behavior.
func (f *MemoryFeed) Run(ctx context.Context, handler Handler) {
	for {
		select {
		case d := <-f.queue:
			d.attempts++
			if err := handler(ctx, d.ev); err != nil {
				if d.attempts >= f.maxDeliveries {
					log.Printf("changefeed: parking %s %s after %d deliveries: %v",
						d.ev.EntityType, d.ev.EntityID, d.attempts, err)
					continue
				}
				select {
				case f.queue <- d:
				case <-ctx.Done():
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// Drain synchronously delivers everything currently queued, including
// redeliveries caused by handler errors. Test helper.
func (f *MemoryFeed) Drain(ctx context.Context, handler Handler) {
	for {
		select {
		case d := <-f.queue:
			d.attempts++
			if err := handler(ctx, d.ev); err != nil && d.attempts < f.maxDeliveries {
				f.queue <- d
			}
		default:
			return
		}
	}
}
