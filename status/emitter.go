package status

import (
	"context"
	"sync"
)

// Emitter pushes events to whatever is listening for them: a websocket hub
// in the server, a recorder in tests.
type Emitter interface {
	Emit(ctx context.Context, event string, data any)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, event string, data any)

func (f EmitterFunc) Emit(ctx context.Context, event string, data any) {
	f(ctx, event, data)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, any) {}

// MockEmitter records emissions for test assertions. Safe for concurrent use.
type MockEmitter struct {
	mu     sync.Mutex
	events []EmittedEvent
}

// EmittedEvent holds a single recorded emission.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	m.events = append(m.events, EmittedEvent{Event: event, Data: data})
	m.mu.Unlock()
}

// Events returns a copy of the recorded emissions.
func (m *MockEmitter) Events() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmittedEvent(nil), m.events...)
}

// Broadcaster fans emissions out to any number of subscribers, such as
// the open event streams of one editing session.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[uint64]Emitter
	next uint64
}

// NewBroadcaster returns a Broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uint64]Emitter)}
}

// Subscribe adds e and returns a function that removes it.
func (b *Broadcaster) Subscribe(e Emitter) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = e
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Subscribers returns the number of subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Emit forwards to every subscriber.
func (b *Broadcaster) Emit(ctx context.Context, event string, data any) {
	b.mu.Lock()
	subs := make([]Emitter, 0, len(b.subs))
	for _, e := range b.subs {
		subs = append(subs, e)
	}
	b.mu.Unlock()
	for _, e := range subs {
		e.Emit(ctx, event, data)
	}
}
