// Package notify delivers fire-and-forget memory events to live sessions.
// Delivery mechanics (websocket, SSE, push) belong to the host; this package
// only fans events out to in-process subscribers and never blocks a producer.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// EventType identifies a memory event kind.
type EventType string

const (
	// EventPreferenceSurfaced fires once when a preference's merged
	// confidence first crosses the surfacing threshold.
	EventPreferenceSurfaced EventType = "preference_surfaced"
	// EventTopicShift fires when topic-shift detection suggests a new thread.
	EventTopicShift EventType = "topic_shift"
	// EventConsolidationDone fires when a consolidation pass finishes.
	EventConsolidationDone EventType = "consolidation_done"
)

// Event is one notification.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	UserID    int32             `json:"user_id"`
	SessionID string            `json:"session_id,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Notifier is the notification sink consumed by the engine.
type Notifier interface {
	// Notify delivers an event. Fire-and-forget; implementations must not
	// block or fail the caller.
	Notify(event Event)
}

// Dispatcher fans events out to per-user subscriber channels. Slow
// subscribers are skipped, never waited on.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[int32][]chan Event
	bufferSize  int
}

// NewDispatcher creates a dispatcher. bufferSize is the per-subscriber
// channel capacity (default 16).
func NewDispatcher(bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Dispatcher{
		subscribers: make(map[int32][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a listener for a user's events. The returned cancel
// function removes the subscription and closes the channel.
func (d *Dispatcher) Subscribe(userID int32) (<-chan Event, func()) {
	ch := make(chan Event, d.bufferSize)

	d.mu.Lock()
	d.subscribers[userID] = append(d.subscribers[userID], ch)
	d.mu.Unlock()

	cancel := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		subs := d.subscribers[userID]
		for i, sub := range subs {
			if sub == ch {
				d.subscribers[userID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
		if len(d.subscribers[userID]) == 0 {
			delete(d.subscribers, userID)
		}
	}
	return ch, cancel
}

// Notify delivers the event to every subscriber of the user. Full buffers
// drop the event for that subscriber.
func (d *Dispatcher) Notify(event Event) {
	if event.ID == "" {
		event.ID = shortuuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, ch := range d.subscribers[event.UserID] {
		select {
		case ch <- event:
		default:
			slog.Debug("notification dropped for slow subscriber",
				"user_id", event.UserID,
				"event_type", event.Type)
		}
	}
}

// Close drops all subscriptions and closes their channels.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for userID, subs := range d.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(d.subscribers, userID)
	}
}

var _ Notifier = (*Dispatcher)(nil)

// MockNotifier records events for assertions in tests.
type MockNotifier struct {
	mu     sync.Mutex
	events []Event
}

// NewMockNotifier creates an empty mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.ID == "" {
		event.ID = shortuuid.New()
	}
	m.events = append(m.events, event)
}

// Events returns a copy of all recorded events.
func (m *MockNotifier) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// EventsOfType returns recorded events of one type.
func (m *MockNotifier) EventsOfType(t EventType) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var _ Notifier = (*MockNotifier)(nil)
