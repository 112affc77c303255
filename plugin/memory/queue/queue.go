// Package queue provides the bounded background task queue that decouples
// consolidation work from request handling.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Task is one unit of background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue runs tasks on a fixed pool of workers. Enqueue never blocks; when
// the buffer is full the task is dropped and counted.
type Queue struct {
	tasks   chan Task
	workers int

	wg      sync.WaitGroup
	stopMu  sync.RWMutex
	stopped bool
	dropped atomic.Int64
	done    atomic.Int64
	failed  atomic.Int64
}

// New creates a queue with the given worker count and buffer capacity.
func New(workers, capacity int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{
		tasks:   make(chan Task, capacity),
		workers: workers,
	}
}

// Start launches the workers. They run until ctx is canceled or Stop is
// called.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			q.run(ctx, task)
		}
	}
}

func (q *Queue) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			q.failed.Add(1)
			slog.Error("background task panicked", "task", task.Name, "panic", r)
		}
	}()

	if err := task.Run(ctx); err != nil {
		q.failed.Add(1)
		slog.Warn("background task failed", "task", task.Name, "error", err)
		return
	}
	q.done.Add(1)
}

// Enqueue submits a task without blocking. It reports false when the task
// was dropped because the queue is full or stopped.
func (q *Queue) Enqueue(task Task) bool {
	q.stopMu.RLock()
	defer q.stopMu.RUnlock()
	if q.stopped {
		q.dropped.Add(1)
		return false
	}
	select {
	case q.tasks <- task:
		return true
	default:
		q.dropped.Add(1)
		slog.Warn("background queue full, dropping task", "task", task.Name)
		return false
	}
}

// Stop closes the queue and waits for in-flight tasks to finish. Pending
// buffered tasks are still drained by the workers.
func (q *Queue) Stop() {
	q.stopMu.Lock()
	if q.stopped {
		q.stopMu.Unlock()
		return
	}
	q.stopped = true
	close(q.tasks)
	q.stopMu.Unlock()
	q.wg.Wait()
}

// Dropped returns how many tasks were rejected by a full or stopped queue.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }

// Completed returns how many tasks finished without error.
func (q *Queue) Completed() int64 { return q.done.Load() }

// Failed returns how many tasks returned an error or panicked.
func (q *Queue) Failed() int64 { return q.failed.Load() }
