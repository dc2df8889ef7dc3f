package events

import (
	"sync"
	"time"

	"github.com/scribeflow/scribeflow/internal/models"
)

// Type classifies messages emitted while jobs move through the pipeline.
type Type string

const (
	TypeJobCreated        Type = "job_created"
	TypeJobStatus         Type = "job_status"
	TypeJobDeleted        Type = "job_deleted"
	TypeOperationStarted  Type = "operation_started"
	TypeOperationFinished Type = "operation_finished"
)

// Event is a sequenced payload consumed by polling and websocket clients.
type Event struct {
	Seq         int64            `json:"seq"`
	Timestamp   time.Time        `json:"timestamp"`
	Type        Type             `json:"type"`
	JobID       string           `json:"job_id,omitempty"`
	Status      models.JobStatus `json:"status,omitempty"`
	Progress    float64          `json:"progress,omitempty"`
	Message     string           `json:"message,omitempty"`
	OperationID string           `json:"operation_id,omitempty"`
}

// Bus stores recent events, provides incremental reads, and fans out
// live events to subscribers.
type Bus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
	subs      map[chan Event]struct{}
}

// NewBus creates a bounded in-memory event buffer.
func NewBus(maxEvents int) *Bus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &Bus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
		subs:      make(map[chan Event]struct{}),
	}
}

// Publish appends one event, assigns sequence and timestamp, and delivers
// it to all subscribers. Slow subscribers drop events rather than block
// the publisher.
func (b *Bus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

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

	for ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *Bus) Since(seq int64) []Event {
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

// Subscribe registers a buffered channel that receives every event
// published after the call. The returned cancel func must be called to
// release the subscription.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
	return ch, cancel
}
