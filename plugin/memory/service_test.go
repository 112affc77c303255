package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/mnemos/plugin/ai"
	"github.com/hrygo/mnemos/store"
)

func newServiceFixture(t *testing.T) (*engineFixture, *Service) {
	t.Helper()
	f := newEngineFixture(t)
	svc := NewService(f.store, f.engine, f.embedder, f.vectors, nil)
	return f, svc
}

func seedConcept(t *testing.T, f *engineFixture, userID int32, topic, canonical string, lastMention time.Time) {
	t.Helper()
	_, err := f.store.UpsertConcept(context.Background(), &store.Concept{
		ID:             ConceptID(userID, topic),
		UserID:         userID,
		Topic:          NormalizeTopic(topic),
		Canonical:      canonical,
		MentionCount:   1,
		ThreadIDs:      []string{"th1"},
		FirstMentionTs: lastMention.Unix(),
		LastMentionTs:  lastMention.Unix(),
		Vitality:       1,
		CreatedTs:      lastMention.Unix(),
	})
	require.NoError(t, err)
}

func TestSearchConceptsLexicalOnly(t *testing.T) {
	f, svc := newServiceFixture(t)
	now := time.Now()
	seedConcept(t, f, 1, "docker", "docker build failures", now)
	seedConcept(t, f, 1, "gardening", "weekend gardening plans", now)

	matches, err := svc.SearchConcepts(context.Background(), 1, "docker build", 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	require.Equal(t, "docker", matches[0].Entry.Topic)
	for _, m := range matches {
		require.GreaterOrEqual(t, m.FusedScore, 0.0)
		require.LessOrEqual(t, m.FusedScore, 1.0)
	}
}

func TestSearchConceptsTenantIsolation(t *testing.T) {
	f, svc := newServiceFixture(t)
	now := time.Now()
	seedConcept(t, f, 1, "secret project", "user one secret project", now)
	seedConcept(t, f, 2, "secret project", "user two secret project", now)

	matches, err := svc.SearchConcepts(context.Background(), 1, "secret project", 10)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	for _, m := range matches {
		require.Equal(t, int32(1), m.Entry.UserID)
	}
}

func TestSearchConceptsDegradesWithoutVectorStore(t *testing.T) {
	f, svc := newServiceFixture(t)
	f.vectors.Unreachable = true
	seedConcept(t, f, 1, "coffee", "coffee brewing", time.Now())

	matches, err := svc.SearchConcepts(context.Background(), 1, "coffee", 5)
	require.NoError(t, err, "unreachable vector store falls back to lexical")
	require.NotEmpty(t, matches)
	require.Zero(t, matches[0].VectorScore)
	require.Greater(t, matches[0].LexicalScore, 0.0)
}

func TestSearchConceptsStaleEntriesScoreLower(t *testing.T) {
	f, svc := newServiceFixture(t)
	now := time.Now()
	seedConcept(t, f, 1, "docker fresh", "docker deployment notes", now)
	seedConcept(t, f, 1, "docker stale", "docker deployment notes", now.Add(-60*24*time.Hour))

	matches, err := svc.SearchConcepts(context.Background(), 1, "docker deployment notes", 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	scores := map[string]float64{}
	for _, m := range matches {
		scores[m.Entry.Topic] = m.FusedScore
	}
	require.Greater(t, scores["docker fresh"], scores["docker stale"])
}

func TestSearchConceptsValidation(t *testing.T) {
	_, svc := newServiceFixture(t)

	_, err := svc.SearchConcepts(context.Background(), 1, "", 5)
	require.Error(t, err)

	matches, err := svc.SearchConcepts(context.Background(), 1, "anything", 5)
	require.NoError(t, err)
	require.Empty(t, matches, "empty corpus yields empty results")
}

func TestStatusReflectsState(t *testing.T) {
	f, svc := newServiceFixture(t)

	status, err := svc.Status(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, status.HasShortTermMemory)
	require.Zero(t, status.LongTermEntryCount)
	require.Nil(t, status.LastConsolidation)

	f.classifier.Extraction = &ai.ConceptExtraction{Summary: "chat recap", Concepts: []string{"chatting"}}
	f.seedTurn(t, 1, "th1", "hello there", 100)
	_, err = svc.Consolidate(context.Background(), 1, "th1", 0, false)
	require.NoError(t, err)

	status, err = svc.Status(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, status.HasShortTermMemory)
	require.Equal(t, int64(1), status.LongTermEntryCount)
	require.NotNil(t, status.LastConsolidation)
}

func TestMaintainSoftAndHard(t *testing.T) {
	f, svc := newServiceFixture(t)
	now := time.Now()
	seedConcept(t, f, 1, "fresh topic", "fresh topic", now)
	seedConcept(t, f, 1, "ancient topic", "ancient topic", now.Add(-365*24*time.Hour))

	userID := int32(1)
	report, err := svc.Maintain(context.Background(), &userID, false)
	require.NoError(t, err)
	require.Equal(t, 2, report.EntriesSwept)
	require.Zero(t, report.EntriesRemoved, "soft sweep never deletes")

	ancientID := ConceptID(1, "ancient topic")
	ancient, err := f.store.GetConcept(context.Background(), &store.FindConcept{ID: &ancientID})
	require.NoError(t, err)
	require.Less(t, ancient.Vitality, hardSweepVitalityFloor)

	report, err = svc.Maintain(context.Background(), &userID, true)
	require.NoError(t, err)
	require.Equal(t, 1, report.EntriesRemoved)

	remaining, err := f.store.ListConcepts(context.Background(), &store.FindConcept{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "fresh topic", remaining[0].Topic)
}
