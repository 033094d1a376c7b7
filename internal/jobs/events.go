package jobs

import (
	"sync"
	"time"

	"audio2video/internal/domain"
)

// EventType classifies messages emitted during queue processing.
type EventType string

const (
	EventTypeSubmitted EventType = "submitted"
	EventTypeStatus    EventType = "status"
	EventTypeProgress  EventType = "progress"
	EventTypeLog       EventType = "log"
	EventTypeDrained   EventType = "drained"
)

// Event is a sequenced payload consumed by collaborator surfaces.
type Event struct {
	Seq       int64            `json:"seq"`
	Timestamp time.Time        `json:"timestamp"`
	JobID     string           `json:"jobId,omitempty"`
	Type      EventType        `json:"type"`
	Status    domain.JobStatus `json:"status,omitempty"`
	Progress  *domain.Progress `json:"progress,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// EventBus stores recent events for incremental reads and fans them out to
// live subscribers. Publishing never blocks: a subscriber that falls behind
// misses events rather than stalling the conversion workers.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
	subs      []chan Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event, assigns sequence and timestamp, and notifies
// subscribers.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	subs := b.subs
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub <- event:
		default:
		}
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// Subscribe registers a live consumer. The returned channel is buffered;
// it is closed by Close.
func (b *EventBus) Subscribe() <-chan Event {
	ch := make(chan Event, 256)

	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()

	return ch
}

// Close closes all subscriber channels. Publish must not be called after.
func (b *EventBus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub)
	}
}
