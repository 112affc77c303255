package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscriber(t *testing.T) {
	d := NewDispatcher(4)
	ch, cancel := d.Subscribe(1)
	defer cancel()

	d.Notify(Event{Type: EventPreferenceSurfaced, UserID: 1})

	select {
	case e := <-ch:
		assert.Equal(t, EventPreferenceSurfaced, e.Type)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
	default:
		t.Fatal("expected an event")
	}
}

func TestDispatcherIsolatesUsers(t *testing.T) {
	d := NewDispatcher(4)
	ch1, cancel1 := d.Subscribe(1)
	defer cancel1()

	d.Notify(Event{Type: EventTopicShift, UserID: 2})

	select {
	case <-ch1:
		t.Fatal("user 1 must not receive user 2 events")
	default:
	}
}

func TestDispatcherNeverBlocksOnFullBuffer(t *testing.T) {
	d := NewDispatcher(1)
	_, cancel := d.Subscribe(1)
	defer cancel()

	// Second notify overflows the buffer; it must drop, not block.
	d.Notify(Event{Type: EventConsolidationDone, UserID: 1})
	d.Notify(Event{Type: EventConsolidationDone, UserID: 1})
}

func TestDispatcherCancelClosesChannel(t *testing.T) {
	d := NewDispatcher(1)
	ch, cancel := d.Subscribe(1)
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Notify after cancel must not panic.
	d.Notify(Event{Type: EventTopicShift, UserID: 1})
}

func TestMockNotifierRecords(t *testing.T) {
	m := NewMockNotifier()
	m.Notify(Event{Type: EventPreferenceSurfaced, UserID: 1})
	m.Notify(Event{Type: EventTopicShift, UserID: 1})

	require.Len(t, m.Events(), 2)
	assert.Len(t, m.EventsOfType(EventPreferenceSurfaced), 1)
}
