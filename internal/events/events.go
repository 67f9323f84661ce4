// Package events fans document and group mutations out to interested subscribers.
//
// A Bus delivers events in-process without ever blocking the publisher:
// a subscriber whose buffer is full misses the event. A RedisBridge
// extends a Bus across server instances.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "pj_events_dropped_total",
	Help: "Document events not delivered because a subscriber buffer was full.",
})

// Kind classifies a mutation.
type Kind string

// Mutation kinds. KindGroupsChanged carries no DocumentID.
const (
	KindCreated       Kind = "created"
	KindUpdated       Kind = "updated"
	KindRevoked       Kind = "revoked"
	KindGroupsChanged Kind = "groups_changed"
)

// IsDocument reports whether k describes a document mutation.
func (k Kind) IsDocument() bool {
	return k == KindCreated || k == KindUpdated || k == KindRevoked
}

// Event announces that a document or the group set changed.
type Event struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	DocumentID string    `json:"document_id"`
	ActorID    int64     `json:"actor_id"`
	At         time.Time `json:"at"`
	Origin     string    `json:"origin"` // instance that produced the event
}

// Bus is an in-process publish/subscribe hub.
type Bus struct {
	log    *zap.Logger
	origin string

	mu     sync.RWMutex
	subs   map[uint64]chan Event
	next   uint64
	closed bool
}

// NewBus creates a bus with a fresh instance origin.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		log:    log.Named("events"),
		origin: uuid.Must(uuid.NewV4()).String(),
		subs:   make(map[uint64]chan Event),
	}
}

// Origin identifies this process in events it produces.
func (b *Bus) Origin() string { return b.origin }

// Subscribe registers a subscriber with the given buffer size.
// The returned cancel func unregisters it and closes the channel; it is safe to call twice.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers e to every subscriber that has room for it.
// Missing ID, At and Origin are filled in.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if ctx.Err() != nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV4()).String()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if e.Origin == "" {
		e.Origin = b.origin
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			eventsDropped.Inc()
			b.log.Warn("subscriber too slow, event dropped",
				zap.Uint64("subscriber", id),
				zap.String("kind", string(e.Kind)),
				zap.String("document", e.DocumentID))
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription; later subscriptions get a closed channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
