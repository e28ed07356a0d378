// Package events carries navigator, session and transfer notifications from the
// core packages to whatever front end is rendering them.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/drivemanager/drivectl/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventProgress EventType = "progress"
	EventError    EventType = "error"

	// Session lifecycle
	EventSessionChanged EventType = "session_changed" // login or logout
	EventLoginRequired  EventType = "login_required"  // server rejected the credential
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// NewBaseEvent stamps an event of the given type with the current time.
func NewBaseEvent(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// ProgressEvent reports bytes moved for an upload.
type ProgressEvent struct {
	BaseEvent
	Name         string // image display name
	FolderID     string
	BytesCurrent int64
	BytesTotal   int64
	Done         bool
}

// Fraction returns progress as 0.0 to 1.0, or 0 when the total is unknown.
func (e *ProgressEvent) Fraction() float64 {
	if e.BytesTotal <= 0 {
		return 0
	}
	return float64(e.BytesCurrent) / float64(e.BytesTotal)
}

// ErrorEvent represents a failure not tied to the navigator snapshot.
type ErrorEvent struct {
	BaseEvent
	Operation string
	Error     error
}

// SessionChangedEvent is published by the session store on login and logout.
type SessionChangedEvent struct {
	BaseEvent
	LoggedIn bool
}

// LoginRequiredEvent is published once per rejected credential. Front ends
// react by sending the user to their login entry point.
type LoginRequiredEvent struct {
	BaseEvent
	Operation string // API operation that was rejected
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return closedChannel()
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return closedChannel()
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

func closedChannel() <-chan Event {
	ch := make(chan Event)
	close(ch)
	return ch
}

// Publish sends an event to all subscribers without blocking.
// Events for a full subscriber are dropped and counted.
// Publishing on a nil bus is a no-op so components can run without one.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		eb.deliver(ch, event)
	}
	for _, ch := range eb.all {
		eb.deliver(ch, event)
	}
}

func (eb *EventBus) deliver(ch chan Event, event Event) {
	select {
	case ch <- event:
	default:
		// Warn every 100 drops to avoid log spam
		if dropped := eb.droppedEvents.Add(1); dropped%100 == 0 {
			log.Warn().Int64("dropped", dropped).Str("type", string(event.Type())).Msg("Event subscriber is not keeping up")
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishProgress is a convenience method for publishing upload progress
func (eb *EventBus) PublishProgress(name, folderID string, current, total int64, done bool) {
	eb.Publish(&ProgressEvent{
		BaseEvent:    NewBaseEvent(EventProgress),
		Name:         name,
		FolderID:     folderID,
		BytesCurrent: current,
		BytesTotal:   total,
		Done:         done,
	})
}

// PublishError is a convenience method for publishing error events
func (eb *EventBus) PublishError(operation string, err error) {
	eb.Publish(&ErrorEvent{
		BaseEvent: NewBaseEvent(EventError),
		Operation: operation,
		Error:     err,
	})
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
