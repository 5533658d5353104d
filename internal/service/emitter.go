package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Events emitted by the services.
const (
	EventBuilderChanged = "page:builder-changed"
	EventPageSaved      = "page:saved"
	EventPagesChanged   = "pages:changed"
	EventCatalogChanged = "catalog:changed"
	EventContentChanged = "content:changed"
	EventNavChanged     = "nav:changed"
	EventSubscribed     = "newsletter:subscribed"
	EventFeedImported   = "catalog:feed-imported"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from their listeners
// ─────────────────────────────────────────────────────────────

// EventEmitter is an interface for emitting change events. The HTTP layer
// streams them to the admin UI; tests use MockEmitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Event is one emitted event.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// Broker fans events out to every subscriber. Slow subscribers miss
// events rather than block the emitter.
type Broker struct {
	log *zap.Logger

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBroker(log *zap.Logger) *Broker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broker{log: log, subs: make(map[chan Event]struct{})}
}

func (b *Broker) Emit(_ context.Context, event string, data any) {
	b.log.Debug("event", zap.String("event", event), zap.Any("data", data))
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- Event{Name: event, Data: data}:
		default:
		}
	}
}

// Subscribe registers a listener. The returned func unregisters it and
// closes the channel.
func (b *Broker) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Names returns the recorded event names in order.
func (m *MockEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.Events))
	for i, e := range m.Events {
		names[i] = e.Event
	}
	return names
}
