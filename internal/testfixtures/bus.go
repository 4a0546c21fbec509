package testfixtures

import (
	"context"
	"sync"

	"github.com/example/liveworship/internal/socket"
)

// Bus is an in-memory event channel. It records every emitted message and
// lets tests deliver inbound broadcasts synchronously.
type Bus struct {
	mu        sync.Mutex
	connected bool
	emitted   []socket.Message
	handlers  map[string]map[int]socket.Handler
	nextID    int
	emitErr   error
}

// NewBus returns a connected bus.
func NewBus() *Bus {
	return &Bus{connected: true, handlers: make(map[string]map[int]socket.Handler)}
}

// SetConnected toggles the connection state. A disconnected bus fails every
// Emit with socket.ErrDisconnected.
func (b *Bus) SetConnected(connected bool) {
	b.mu.Lock()
	b.connected = connected
	b.mu.Unlock()
}

// FailEmits makes Emit return err while connected.
func (b *Bus) FailEmits(err error) {
	b.mu.Lock()
	b.emitErr = err
	b.mu.Unlock()
}

// Connected reports the simulated connection state.
func (b *Bus) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// Emit records msg.
func (b *Bus) Emit(_ context.Context, msg socket.Message) error {
	if _, err := socket.Encode(msg); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return socket.ErrDisconnected
	}
	if b.emitErr != nil {
		return b.emitErr
	}
	b.emitted = append(b.emitted, msg)
	return nil
}

// On registers h for inbound messages named event.
func (b *Bus) On(event string, h socket.Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.handlers[event] == nil {
		b.handlers[event] = make(map[int]socket.Handler)
	}
	b.handlers[event][id] = h
	return func() {
		b.mu.Lock()
		delete(b.handlers[event], id)
		b.mu.Unlock()
	}
}

// Deliver dispatches msg to its handlers as if it arrived from the server.
func (b *Bus) Deliver(msg socket.Message) {
	b.mu.Lock()
	targets := make([]socket.Handler, 0, len(b.handlers[msg.EventName()]))
	for _, h := range b.handlers[msg.EventName()] {
		targets = append(targets, h)
	}
	b.mu.Unlock()

	for _, h := range targets {
		h(msg)
	}
}

// Handlers returns how many handlers are registered for event.
func (b *Bus) Handlers(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[event])
}

// Emitted returns a copy of the recorded messages.
func (b *Bus) Emitted() []socket.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]socket.Message(nil), b.emitted...)
}

// EmittedNames returns the event names of the recorded messages.
func (b *Bus) EmittedNames() []string {
	msgs := b.Emitted()
	names := make([]string, len(msgs))
	for i, m := range msgs {
		names[i] = m.EventName()
	}
	return names
}

// Reset forgets recorded messages.
func (b *Bus) Reset() {
	b.mu.Lock()
	b.emitted = nil
	b.mu.Unlock()
}
