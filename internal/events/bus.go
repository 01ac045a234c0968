package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(*Event)

// Bus is a typed publish/subscribe hub
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[EventType]map[uint64]Handler
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventType]map[uint64]Handler)}
}

// Subscribe registers handler for each of the given types (every type when
// none is given). The returned function removes the subscription.
func (b *Bus) Subscribe(handler Handler, types ...EventType) (unsubscribe func()) {
	if len(types) == 0 {
		types = AllTypes
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	for _, t := range types {
		if b.handlers[t] == nil {
			b.handlers[t] = make(map[uint64]Handler)
		}
		b.handlers[t][id] = handler
	}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for _, t := range types {
				delete(b.handlers[t], id)
			}
		})
	}
}

// Emit publishes an event built from the given fields and returns it
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) *Event {
	event := &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}
	b.Publish(event)
	return event
}

// Publish delivers event to every subscriber of its type
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	subs := make([]Handler, 0, len(b.handlers[event.Type]))
	for _, h := range b.handlers[event.Type] {
		subs = append(subs, h)
	}
	b.mu.RUnlock()

	for _, h := range subs {
		h(event)
	}
}
