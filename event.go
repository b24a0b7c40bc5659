package landsync

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

// Event is a one-time message sent to clients. Unlike state updates, which
// are diffs against persistent state, events are discrete fire-and-forget
// notifications: "CardPlayed", "PlayerJoined", "RoundStarted".
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event, panicking only if payload is not
// JSON-marshalable, which would indicate a programming error at the call
// site rather than a runtime condition a handler should recover from.
func NewEvent(eventType string, payload any) Event {
	if payload == nil {
		return Event{Type: eventType}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		panic("landsync: event payload for " + eventType + " is not JSON-marshalable: " + err.Error())
	}
	return Event{Type: eventType, Payload: data}
}

// EventTarget specifies who receives an event.
type EventTarget uint8

const (
	TargetAll EventTarget = iota
	TargetOne
	TargetExcept
	TargetMany
)

// PendingEvent is an event waiting to be delivered on the next tick.
type PendingEvent[ID comparable] struct {
	Event  Event
	Target EventTarget
	To     ID
	Except ID
	ToMany []ID
}

// EventBuffer collects events between ticks. Optimized for low-allocation
// operation via an atomic counter guarding the common empty-buffer check.
type EventBuffer[ID comparable] struct {
	mu     sync.Mutex
	events []PendingEvent[ID]
	swap   []PendingEvent[ID]
	count  atomic.Int32
}

// NewEventBuffer creates a new event buffer.
func NewEventBuffer[ID comparable]() *EventBuffer[ID] {
	return &EventBuffer[ID]{
		events: make([]PendingEvent[ID], 0, 8),
		swap:   make([]PendingEvent[ID], 0, 8),
	}
}

// Add appends an event to the buffer.
func (eb *EventBuffer[ID]) Add(event PendingEvent[ID]) {
	eb.mu.Lock()
	eb.events = append(eb.events, event)
	eb.count.Store(int32(len(eb.events)))
	eb.mu.Unlock()
}

// Drain returns all pending events and clears the buffer, swapping buffers
// instead of allocating a fresh slice each tick.
func (eb *EventBuffer[ID]) Drain() []PendingEvent[ID] {
	if eb.count.Load() == 0 {
		return nil
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if len(eb.events) == 0 {
		return nil
	}
	events := eb.events
	eb.events = eb.swap[:0]
	eb.swap = events[:0]
	eb.count.Store(0)
	return events
}

// Count returns the number of pending events (lock-free).
func (eb *EventBuffer[ID]) Count() int {
	return int(eb.count.Load())
}

// HasEvents reports whether there are pending events (lock-free).
func (eb *EventBuffer[ID]) HasEvents() bool {
	return eb.count.Load() > 0
}

// Clear discards all pending events without returning them.
func (eb *EventBuffer[ID]) Clear() {
	eb.mu.Lock()
	eb.events = eb.events[:0]
	eb.count.Store(0)
	eb.mu.Unlock()
}

// EventEmitter is an interface for sending events addressed by ID. Context
// does not implement it; it has its own SendEvent methods.
type EventEmitter[ID comparable] interface {
	Emit(eventType string, payload any) error
	EmitTo(clientID ID, eventType string, payload any) error
	EmitExcept(exceptID ID, eventType string, payload any) error
	EmitToMany(clientIDs []ID, eventType string, payload any) error
	EmitRaw(event Event) error
	EmitRawTo(clientID ID, event Event) error
}
