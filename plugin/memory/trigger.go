package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/mnemos/plugin/ai"
	"github.com/hrygo/mnemos/plugin/memory/queue"
)

// DefaultIncrementalThreshold is how many new turns a thread accumulates
// before a micro-consolidation is scheduled.
const DefaultIncrementalThreshold = 10

type turnCounter struct {
	count     int
	updatedAt time.Time
}

// IncrementalTrigger counts turns per (user, session, thread) and schedules
// a micro-consolidation of the recent window each time the threshold is
// reached. Counters are in-memory only; losing them merely delays
// consolidation until the next periodic sweep.
type IncrementalTrigger struct {
	mu       sync.Mutex
	counters map[string]*turnCounter

	engine    *Engine
	tasks     *queue.Queue
	threshold int
}

func NewIncrementalTrigger(engine *Engine, tasks *queue.Queue, threshold int) *IncrementalTrigger {
	if threshold <= 0 {
		threshold = DefaultIncrementalThreshold
	}
	return &IncrementalTrigger{
		counters:  make(map[string]*turnCounter),
		engine:    engine,
		tasks:     tasks,
		threshold: threshold,
	}
}

// RecordTurn notes a new turn and reports whether a micro-consolidation was
// scheduled. The counter resets on scheduling even if the queue drops the
// task; the periodic sweep will catch up.
func (t *IncrementalTrigger) RecordTurn(turn *Turn) bool {
	key := fmt.Sprintf("%d|%s|%s", turn.UserID, turn.SessionID, turn.ThreadID)

	t.mu.Lock()
	counter, ok := t.counters[key]
	if !ok {
		counter = &turnCounter{}
		t.counters[key] = counter
	}
	counter.count++
	counter.updatedAt = time.Now()
	fire := counter.count >= t.threshold
	if fire {
		counter.count = 0
	}
	t.mu.Unlock()

	if !fire {
		return false
	}

	userID, sessionID, threadID := turn.UserID, turn.SessionID, turn.ThreadID
	t.tasks.Enqueue(queue.Task{
		Name: "micro-consolidation",
		Run: func(ctx context.Context) error {
			return t.microConsolidate(ctx, userID, sessionID, threadID)
		},
	})
	return true
}

// microConsolidate runs the consolidation pipeline over just the recent
// window of the thread: classification, concept merge, vector indexing and
// the rolling summary, which it appends to rather than replaces. The next
// full pass compacts the summary and remains the source of truth for the
// consolidation marker.
func (t *IncrementalTrigger) microConsolidate(ctx context.Context, userID int32, sessionID, threadID string) error {
	rows, err := t.engine.store.ListRecentTurns(ctx, userID, threadID, t.threshold)
	if err != nil {
		return errors.Wrap(err, "failed to load recent turns")
	}
	if len(rows) == 0 {
		return nil
	}
	turns := turnsFromStore(rows)

	var signals []*ClassifiedSignal
	var extraction *ai.ConceptExtraction
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		signals, _ = t.engine.classifier.ClassifyBatch(groupCtx, turns, recentContents(turns))
		return nil
	})
	group.Go(func() error {
		var extractErr error
		extraction, extractErr = t.engine.analyzer.Extract(groupCtx, turns)
		return extractErr
	})
	if err := group.Wait(); err != nil {
		return errors.Wrap(err, "micro extraction failed")
	}

	lastTurn := rows[len(rows)-1]
	if _, _, _, err := t.engine.mergeConcepts(ctx, userID, threadID, extraction.Concepts, lastTurn); err != nil {
		return err
	}
	if _, _, err := t.engine.mergePreferences(ctx, userID, signals); err != nil {
		return err
	}
	t.engine.indexConcepts(ctx, userID, extraction.Concepts)
	t.engine.updateSessionSummary(ctx, userID, sessionID, extraction.Summary, len(rows), true)
	return nil
}

// Cleanup drops counters idle longer than maxAge and reports how many were
// removed.
func (t *IncrementalTrigger) Cleanup(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for key, counter := range t.counters {
		if counter.updatedAt.Before(cutoff) {
			delete(t.counters, key)
			removed++
		}
	}
	return removed
}

// Pending returns the live counter for a thread, for status introspection.
func (t *IncrementalTrigger) Pending(userID int32, sessionID, threadID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	counter, ok := t.counters[fmt.Sprintf("%d|%s|%s", userID, sessionID, threadID)]
	if !ok {
		return 0
	}
	return counter.count
}
