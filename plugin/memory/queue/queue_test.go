package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestQueueRunsTasks(t *testing.T) {
	q := New(2, 8)
	q.Start(context.Background())
	defer q.Stop()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		ok := q.Enqueue(Task{Name: "inc", Run: func(context.Context) error {
			ran.Add(1)
			return nil
		}})
		require.True(t, ok)
	}

	waitFor(t, func() bool { return ran.Load() == 5 })
	waitFor(t, func() bool { return q.Completed() == 5 })
	require.Zero(t, q.Dropped())
}

func TestEnqueueNeverBlocksWhenFull(t *testing.T) {
	q := New(1, 1)
	q.Start(context.Background())
	defer q.Stop()

	block := make(chan struct{})
	q.Enqueue(Task{Name: "block", Run: func(context.Context) error {
		<-block
		return nil
	}})

	// Give the worker time to pick up the blocking task, then fill the
	// single buffer slot and overflow it.
	waitFor(t, func() bool { return q.Enqueue(Task{Name: "fill", Run: func(context.Context) error { return nil }}) })

	done := make(chan bool, 1)
	go func() {
		done <- q.Enqueue(Task{Name: "overflow", Run: func(context.Context) error { return nil }})
	}()
	select {
	case accepted := <-done:
		require.False(t, accepted)
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}
	require.GreaterOrEqual(t, q.Dropped(), int64(1))
	close(block)
}

func TestWorkerSurvivesPanic(t *testing.T) {
	q := New(1, 4)
	q.Start(context.Background())
	defer q.Stop()

	q.Enqueue(Task{Name: "boom", Run: func(context.Context) error {
		panic("boom")
	}})
	var ran atomic.Bool
	q.Enqueue(Task{Name: "after", Run: func(context.Context) error {
		ran.Store(true)
		return nil
	}})

	waitFor(t, func() bool { return ran.Load() })
	require.Equal(t, int64(1), q.Failed())
}

func TestFailedTasksAreCounted(t *testing.T) {
	q := New(1, 4)
	q.Start(context.Background())

	q.Enqueue(Task{Name: "fail", Run: func(context.Context) error {
		return errors.New("nope")
	}})
	q.Stop()

	require.Equal(t, int64(1), q.Failed())
	require.Zero(t, q.Completed())
}

func TestEnqueueAfterStopIsDropped(t *testing.T) {
	q := New(1, 4)
	q.Start(context.Background())
	q.Stop()

	require.False(t, q.Enqueue(Task{Name: "late", Run: func(context.Context) error { return nil }}))
	require.Equal(t, int64(1), q.Dropped())
}
