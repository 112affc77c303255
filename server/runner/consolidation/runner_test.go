package consolidation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/mnemos/internal/profile"
	"github.com/hrygo/mnemos/plugin/memory"
	"github.com/hrygo/mnemos/plugin/memory/queue"
	"github.com/hrygo/mnemos/store"
	"github.com/hrygo/mnemos/store/db/sqlite"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	p := &profile.Profile{Mode: "prod", Driver: "sqlite", DSN: t.TempDir() + "/runner_test.db", Version: "test"}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	require.NoError(t, driver.Migrate(context.Background()))
	t.Cleanup(func() { _ = driver.Close() })
	return store.New(driver, p)
}

func seedTurn(t *testing.T, st *store.Store, userID int32, threadID string, ts int64) {
	t.Helper()
	_, err := st.CreateTurn(context.Background(), &store.Turn{
		UserID:    userID,
		SessionID: "s1",
		ThreadID:  threadID,
		Role:      "user",
		Content:   "I prefer morning meetings",
		CreatedTs: ts,
	})
	require.NoError(t, err)
}

func TestSweepEnqueuesDueThreads(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().Unix()
	seedTurn(t, st, 1, "th-a", now-10)
	seedTurn(t, st, 1, "th-b", now-5)
	seedTurn(t, st, 2, "th-a", now-3)

	var mu sync.Mutex
	seen := map[string]int{}
	svc := &memory.MockService{
		ConsolidateFn: func(_ context.Context, userID int32, threadID string, _ int, force bool) (*memory.ConsolidationReport, error) {
			require.False(t, force)
			mu.Lock()
			seen[threadID]++
			mu.Unlock()
			return &memory.ConsolidationReport{ThreadsConsolidated: 1}, nil
		},
	}

	q := queue.New(2, 16)
	q.Start(context.Background())
	defer q.Stop()

	r := NewRunner(st, svc, q, nil, "@every 30m")
	r.Sweep(context.Background())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		total := 0
		for _, n := range seen {
			total += n
		}
		return total == 3
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, seen["th-a"])
	require.Equal(t, 1, seen["th-b"])
}

func TestSweepNoDueThreadsIsQuiet(t *testing.T) {
	st := newTestStore(t)

	svc := &memory.MockService{
		ConsolidateFn: func(context.Context, int32, string, int, bool) (*memory.ConsolidationReport, error) {
			t.Fatal("consolidate should not be called")
			return nil, nil
		},
	}

	q := queue.New(1, 4)
	q.Start(context.Background())
	defer q.Stop()

	NewRunner(st, svc, q, nil, "@every 30m").Sweep(context.Background())
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, q.Completed())
}

func TestSweepStopsWhenQueueFull(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().Unix()
	seedTurn(t, st, 1, "th-a", now-10)
	seedTurn(t, st, 1, "th-b", now-5)
	seedTurn(t, st, 1, "th-c", now-3)

	// Queue with no workers started and capacity 1: the first task fills it,
	// the rest of the sweep defers to the next cycle.
	q := queue.New(1, 1)

	r := NewRunner(st, &memory.MockService{}, q, nil, "@every 30m")
	r.Sweep(context.Background())

	// One task buffered, one rejected, one never attempted.
	require.Equal(t, int64(1), q.Dropped())
}
