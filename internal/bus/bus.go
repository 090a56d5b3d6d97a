// Package bus is the daemon's in-process event fan-out. The RPC Watch
// streams, the status machine and the daemon's scope supervisor all
// listen here.
package bus

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Bus delivers each event to every subscriber whose namespace is a prefix
// of the event kind. Publishing never blocks: a subscriber whose buffer
// is full misses the event and the drop is counted.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	filters map[int]string
	next    int
	dropped atomic.Uint64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs:    make(map[int]chan Event),
		filters: make(map[int]string),
	}
}

// Publish delivers evt, stamping it with the current time if unset.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		if !strings.HasPrefix(evt.Kind, b.filters[id]) {
			continue
		}
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// Emit publishes an event of the given kind. It is a no-op on a nil bus
// so components can run without one in tests.
func (b *Bus) Emit(kind string, payload any) {
	if b == nil {
		return
	}
	b.Publish(Event{Kind: kind, Payload: payload})
}

// Subscribe returns a channel of events under namespace ("" for all) and
// a function that cancels the subscription. The channel is never closed.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.filters[id] = namespace
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			delete(b.filters, id)
			b.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber
// was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
