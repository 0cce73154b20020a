// Package events fans chart events out to connected render surfaces.
package events

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Kind chart event type, also used as the SSE event name.
type Kind string

const (
	KindOptions Kind = "options"
	KindUpdate  Kind = "update"
	KindState   Kind = "state"
)

// ChartEvent one message for the render surface. Payload is pre-encoded JSON.
type ChartEvent struct {
	Seq     uint64          `json:"seq"`
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Subscription receives events until it is cancelled.
type Subscription struct {
	ID uuid.UUID
	C  <-chan ChartEvent

	ch chan ChartEvent
}

// Broadcaster fans events out to all subscribers via buffered channels.
// A subscriber that does not keep up loses events rather than blocking the publisher.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]chan ChartEvent
	buffer int
}

// NewBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 64
	}
	return &Broadcaster{
		subs:   make(map[uuid.UUID]chan ChartEvent),
		buffer: buffer,
	}
}

// Publish sends the event to all subscribers, dropping it for slow readers.
func (b *Broadcaster) Publish(e ChartEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// drop slow consumer
		}
	}
}

// Subscribe registers a new subscriber.
func (b *Broadcaster) Subscribe() *Subscription {
	ch := make(chan ChartEvent, b.buffer)
	sub := &Subscription{ID: uuid.New(), C: ch, ch: ch}

	b.mu.Lock()
	b.subs[sub.ID] = ch
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	if ch, ok := b.subs[sub.ID]; ok {
		delete(b.subs, sub.ID)
		close(ch)
	}
	b.mu.Unlock()
}

// Len returns the number of subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
