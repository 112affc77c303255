package consolidation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hrygo/mnemos/plugin/memory"
	"github.com/hrygo/mnemos/plugin/memory/queue"
	"github.com/hrygo/mnemos/store"
)

// Runner sweeps for threads with unconsolidated turns and schedules a
// consolidation pass for each over the shared background queue. It also
// recomputes vitality scores once a day and expires stale incremental
// trigger counters.
type Runner struct {
	store     *store.Store
	service   memory.MemoryService
	queue     *queue.Queue
	trigger   *memory.IncrementalTrigger
	schedule  string
	batchSize int

	cron *cron.Cron
}

func NewRunner(st *store.Store, svc memory.MemoryService, q *queue.Queue, trigger *memory.IncrementalTrigger, schedule string) *Runner {
	return &Runner{
		store:     st,
		service:   svc,
		queue:     q,
		trigger:   trigger,
		schedule:  schedule,
		batchSize: 50,
	}
}

// Run starts the sweep scheduler and blocks until ctx is canceled.
func (r *Runner) Run(ctx context.Context) {
	// Sweep once on startup to drain anything left over from a previous run.
	r.Sweep(ctx)

	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.schedule, func() { r.Sweep(ctx) }); err != nil {
		slog.Error("invalid sweep schedule, falling back to 30m ticker", "schedule", r.schedule, "error", err)
		r.runTicker(ctx, 30*time.Minute)
		return
	}
	if _, err := r.cron.AddFunc("@daily", func() { r.decayPass(ctx) }); err != nil {
		slog.Error("failed to register decay pass", "error", err)
	}
	r.cron.Start()

	<-ctx.Done()
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	slog.Info("consolidation runner stopped")
}

func (r *Runner) runTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep(ctx)
		case <-ctx.Done():
			slog.Info("consolidation runner stopped")
			return
		}
	}
}

// Sweep enqueues a consolidation task for every due thread. Threads whose
// tasks are dropped because the queue is full are picked up by the next sweep.
func (r *Runner) Sweep(ctx context.Context) {
	due, err := r.store.ListDueThreads(ctx, &store.FindDueThread{Limit: &r.batchSize})
	if err != nil {
		slog.Error("failed to list due threads", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	slog.Info("sweeping due threads", "count", len(due))
	enqueued := 0
	for _, d := range due {
		userID, threadID := d.UserID, d.ThreadID
		ok := r.queue.Enqueue(queue.Task{
			Name: fmt.Sprintf("consolidate %d/%s", userID, threadID),
			Run: func(taskCtx context.Context) error {
				_, err := r.service.Consolidate(taskCtx, userID, threadID, 0, false)
				return err
			},
		})
		if !ok {
			slog.Warn("queue full, deferring thread to next sweep", "thread", threadID)
			break
		}
		enqueued++
	}
	slog.Info("sweep scheduled", "enqueued", enqueued, "due", len(due))

	if r.trigger != nil {
		if expired := r.trigger.Cleanup(24 * time.Hour); expired > 0 {
			slog.Info("expired stale trigger counters", "count", expired)
		}
	}
}

func (r *Runner) decayPass(ctx context.Context) {
	report, err := r.service.Maintain(ctx, nil, false)
	if err != nil {
		slog.Error("decay pass failed", "error", err)
		return
	}
	slog.Info("decay pass finished", "swept", report.EntriesSwept, "removed", report.EntriesRemoved)
}
