package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/mnemos/plugin/ai"
	"github.com/hrygo/mnemos/plugin/memory/queue"
	"github.com/hrygo/mnemos/store"
)

func TestTriggerFiresAtThreshold(t *testing.T) {
	f := newEngineFixture(t)
	f.classifier.Extraction = &ai.ConceptExtraction{Summary: "window recap", Concepts: []string{"planning"}}

	tasks := queue.New(1, 8)
	tasks.Start(context.Background())
	defer tasks.Stop()

	trigger := NewIncrementalTrigger(f.engine, tasks, 3)

	for i := int64(1); i <= 2; i++ {
		f.seedTurn(t, 1, "th1", "planning the week", i*100)
		require.False(t, trigger.RecordTurn(&Turn{UserID: 1, SessionID: "s1", ThreadID: "th1"}))
	}
	require.Equal(t, 2, trigger.Pending(1, "s1", "th1"))

	f.seedTurn(t, 1, "th1", "planning the week again", 300)
	require.True(t, trigger.RecordTurn(&Turn{UserID: 1, SessionID: "s1", ThreadID: "th1"}))
	require.Zero(t, trigger.Pending(1, "s1", "th1"), "counter resets on firing")

	waitForCondition(t, func() bool {
		summary, err := f.store.GetSessionSummary(context.Background(), 1, "s1")
		return err == nil && summary != nil && summary.Summary != ""
	})

	id := ConceptID(1, "planning")
	concept, err := f.store.GetConcept(context.Background(), &store.FindConcept{ID: &id})
	require.NoError(t, err)
	require.NotNil(t, concept)
}

func TestMicroConsolidationRunsFullPipeline(t *testing.T) {
	f := newEngineFixture(t)
	f.classifier.Extraction = &ai.ConceptExtraction{Summary: "window recap", Concepts: []string{"thai food"}}
	f.classifier.Signals["thai"] = &ai.SignalClassification{
		Type: "preference", Topic: "thai food", Sentiment: "positive", Confidence: 0.9,
	}

	// A summary left behind by an earlier pass; the micro pass appends.
	_, err := f.store.UpsertSessionSummary(context.Background(), &store.SessionSummary{
		UserID: 1, SessionID: "s1", Summary: "earlier recap", TurnCount: 5, UpdatedTs: 50,
	})
	require.NoError(t, err)

	tasks := queue.New(1, 8)
	tasks.Start(context.Background())
	defer tasks.Stop()

	trigger := NewIncrementalTrigger(f.engine, tasks, 3)
	contents := []string{"thinking about dinner", "i prefer thai food", "yes thai again"}
	for i, content := range contents {
		f.seedTurn(t, 1, "th1", content, int64((i+1)*100))
		trigger.RecordTurn(&Turn{UserID: 1, SessionID: "s1", ThreadID: "th1"})
	}

	waitForCondition(t, func() bool {
		summary, err := f.store.GetSessionSummary(context.Background(), 1, "s1")
		return err == nil && summary != nil && summary.Summary == "earlier recap\nwindow recap"
	})

	prefID := PreferenceID(1, PreferenceTypePreference, "thai food")
	pref, err := f.store.GetPreference(context.Background(), &store.FindPreference{ID: &prefID})
	require.NoError(t, err)
	require.NotNil(t, pref, "the recent window feeds the preference classifier")

	require.Positive(t, f.vectors.Count(ConceptCollection), "concepts from the window are indexed")

	id := ConceptID(1, "thai food")
	concept, err := f.store.GetConcept(context.Background(), &store.FindConcept{ID: &id})
	require.NoError(t, err)
	require.NotNil(t, concept)
}

func TestTriggerCountsThreadsIndependently(t *testing.T) {
	f := newEngineFixture(t)
	tasks := queue.New(1, 8)
	tasks.Start(context.Background())
	defer tasks.Stop()

	trigger := NewIncrementalTrigger(f.engine, tasks, 3)
	require.False(t, trigger.RecordTurn(&Turn{UserID: 1, SessionID: "s1", ThreadID: "th1"}))
	require.False(t, trigger.RecordTurn(&Turn{UserID: 1, SessionID: "s1", ThreadID: "th2"}))
	require.False(t, trigger.RecordTurn(&Turn{UserID: 2, SessionID: "s1", ThreadID: "th1"}))

	require.Equal(t, 1, trigger.Pending(1, "s1", "th1"))
	require.Equal(t, 1, trigger.Pending(1, "s1", "th2"))
	require.Equal(t, 1, trigger.Pending(2, "s1", "th1"))
}

func TestTriggerCleanup(t *testing.T) {
	f := newEngineFixture(t)
	tasks := queue.New(1, 8)
	tasks.Start(context.Background())
	defer tasks.Stop()

	trigger := NewIncrementalTrigger(f.engine, tasks, 10)
	trigger.RecordTurn(&Turn{UserID: 1, SessionID: "s1", ThreadID: "th1"})

	require.Zero(t, trigger.Cleanup(time.Minute), "fresh counters survive")
	require.Equal(t, 1, trigger.Cleanup(0), "zero max age sweeps everything idle")
	require.Zero(t, trigger.Pending(1, "s1", "th1"))
}

func waitForCondition(t *testing.T, cond func() bool) {
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
