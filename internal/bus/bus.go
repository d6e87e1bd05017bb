// Package bus is the in-process publish/subscribe fabric between adapters.
//
// Delivery is synchronous on the publisher's goroutine. The subscriber table
// is copy-on-write, so Publish never waits on another publisher and handlers
// may publish or unsubscribe re-entrantly.
package bus

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Topic names one event kind.
type Topic string

// Event is any payload carried by the bus.
type Event interface {
	Topic() Topic
}

type subscription struct {
	id      uint64
	deliver func(Event)
}

type table map[Topic][]subscription

// Bus fans events out to typed subscribers.
type Bus struct {
	logger *slog.Logger

	mu     sync.Mutex
	nextID uint64
	subs   atomic.Pointer[table]
}

// New constructs an empty bus. A nil logger discards handler panics silently.
func New(logger *slog.Logger) *Bus {
	b := &Bus{logger: logger}
	empty := table{}
	b.subs.Store(&empty)
	return b
}

// Publish delivers evt to every handler currently subscribed to its topic.
func (b *Bus) Publish(evt Event) {
	if evt == nil {
		return
	}
	current := *b.subs.Load()
	for _, sub := range current[evt.Topic()] {
		b.deliver(sub, evt)
	}
}

func (b *Bus) deliver(sub subscription, evt Event) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Error("bus subscriber panicked",
				"component", "bus",
				"topic", string(evt.Topic()),
				"panic", fmt.Sprint(r),
			)
		}
	}()
	sub.deliver(evt)
}

// SubscriberCount reports how many handlers are attached to topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	return len((*b.subs.Load())[topic])
}

// Subscribe attaches fn to the topic of E and returns its detach func.
// Detaching twice is a no-op.
func Subscribe[E Event](b *Bus, fn func(E)) (unsubscribe func()) {
	var zero E
	topic := zero.Topic()

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	next := b.cloneLocked()
	next[topic] = append(next[topic], subscription{
		id: id,
		deliver: func(evt Event) {
			if typed, ok := evt.(E); ok {
				fn(typed)
			}
		},
	})
	b.subs.Store(&next)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.cloneLocked()
	kept := make([]subscription, 0, len(next[topic]))
	for _, sub := range next[topic] {
		if sub.id != id {
			kept = append(kept, sub)
		}
	}
	if len(kept) == 0 {
		delete(next, topic)
	} else {
		next[topic] = kept
	}
	b.subs.Store(&next)
}

func (b *Bus) cloneLocked() table {
	current := *b.subs.Load()
	next := make(table, len(current)+1)
	for topic, subs := range current {
		next[topic] = append([]subscription(nil), subs...)
	}
	return next
}
