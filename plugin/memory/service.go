package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/mnemos/plugin/ai"
	"github.com/hrygo/mnemos/plugin/memory/metrics"
	"github.com/hrygo/mnemos/plugin/memory/vector"
	memerrors "github.com/hrygo/mnemos/internal/errors"
	"github.com/hrygo/mnemos/server/retrieval"
	"github.com/hrygo/mnemos/store"
)

// retrievalAlpha blends vector similarity against lexical match when both
// are available.
const retrievalAlpha = 0.6

// hardSweepVitalityFloor is the vitality below which a hard maintenance
// sweep removes an entry.
const hardSweepVitalityFloor = 0.05

// Service is the production MemoryService. Consolidation is delegated to
// the engine; retrieval fuses BM25 over stored concepts with vector hits
// and degrades to lexical-only when the vector store is unreachable.
type Service struct {
	store    *store.Store
	engine   *Engine
	embedder ai.EmbeddingService
	vectors  vector.Store
	recorder *metrics.Recorder
	decay    *retrieval.DecayModel
}

func NewService(
	st *store.Store,
	engine *Engine,
	embedder ai.EmbeddingService,
	vectors vector.Store,
	recorder *metrics.Recorder,
) *Service {
	return &Service{
		store:    st,
		engine:   engine,
		embedder: embedder,
		vectors:  vectors,
		recorder: recorder,
		decay:    retrieval.NewDecayModel(),
	}
}

var _ MemoryService = (*Service)(nil)

func (s *Service) Status(ctx context.Context, userID int32) (*Status, error) {
	limit := 1
	summaries, err := s.store.ListSessionSummaries(ctx, &store.FindSessionSummary{UserID: &userID, Limit: &limit})
	if err != nil {
		return nil, memerrors.StoreUnavailable("failed to load session summaries", err)
	}

	concepts, err := s.store.ListConcepts(ctx, &store.FindConcept{UserID: &userID})
	if err != nil {
		return nil, memerrors.StoreUnavailable("failed to load concepts", err)
	}
	preferences, err := s.store.ListPreferences(ctx, &store.FindPreference{UserID: &userID})
	if err != nil {
		return nil, memerrors.StoreUnavailable("failed to load preferences", err)
	}

	status := &Status{
		HasShortTermMemory: len(summaries) > 0,
		LongTermEntryCount: int64(len(concepts) + len(preferences)),
	}

	consolidated := store.ConsolidationStatusConsolidated
	markers, err := s.store.ListConsolidations(ctx, &store.FindConsolidation{
		UserID: &userID,
		Status: &consolidated,
		Limit:  &limit,
	})
	if err != nil {
		return nil, memerrors.StoreUnavailable("failed to load consolidation markers", err)
	}
	if len(markers) > 0 {
		last := time.Unix(markers[0].UpdatedTs, 0)
		status.LastConsolidation = &last
	}

	if s.recorder != nil {
		s.recorder.SetGauge(metrics.MetricActiveEntries, float64(status.LongTermEntryCount))
	}
	return status, nil
}

func (s *Service) Consolidate(ctx context.Context, userID int32, threadID string, limit int, force bool) (*ConsolidationReport, error) {
	return s.engine.Consolidate(ctx, userID, threadID, limit, force)
}

func (s *Service) SearchConcepts(ctx context.Context, userID int32, query string, limit int) ([]*ConceptMatch, error) {
	if query == "" {
		return nil, memerrors.InvalidArgument("query must not be empty")
	}
	if limit <= 0 {
		limit = 10
	}
	started := time.Now()

	rows, err := s.store.ListConcepts(ctx, &store.FindConcept{UserID: &userID})
	if err != nil {
		return nil, memerrors.StoreUnavailable("failed to load concepts", err)
	}
	if len(rows) == 0 {
		return []*ConceptMatch{}, nil
	}

	candidates := make([]retrieval.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, retrieval.Candidate{
			Text:     row.Canonical,
			Metadata: map[string]string{"id": row.ID},
		})
	}

	hits, alpha := s.vectorHits(ctx, userID, query, rows, limit)

	results := retrieval.NewHybridRetriever().Retrieve(query, candidates, hits, retrieval.Options{
		Alpha: alpha,
		TopK:  limit,
	})

	matches := make([]*ConceptMatch, 0, len(results))
	now := time.Now()
	for _, result := range results {
		row := rows[result.Index]
		// Temporal decay demotes stale entries inside the final ranking.
		freshness := s.decay.Freshness(now.Sub(time.Unix(row.LastMentionTs, 0)))
		matches = append(matches, &ConceptMatch{
			Entry:        conceptFromStore(row),
			FusedScore:   clamp01(result.Fused * freshness),
			LexicalScore: result.Lexical,
			VectorScore:  result.Vector,
		})
		if s.recorder != nil {
			s.recorder.Observe(metrics.MetricFusedScore, result.Fused)
		}
	}

	if s.recorder != nil {
		s.recorder.Observe(metrics.MetricQueryLatencyMs, float64(time.Since(started).Milliseconds()))
	}
	return matches, nil
}

// vectorHits queries the vector store for the user's closest concepts. Any
// failure degrades the search to lexical-only by zeroing alpha.
func (s *Service) vectorHits(ctx context.Context, userID int32, query string, rows []*store.Concept, limit int) ([]retrieval.VectorHit, float64) {
	if s.vectors == nil || s.embedder == nil {
		return nil, 0
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("query embedding failed, lexical-only retrieval", "user_id", userID, "error", err)
		return nil, 0
	}

	queryResults, err := s.vectors.Query(ctx, ConceptCollection, embedding, limit*4, map[string]string{
		"user_id": fmt.Sprintf("%d", userID),
	})
	if err != nil {
		if errors.Is(err, vector.ErrUnavailable) {
			slog.Warn("vector store unavailable, lexical-only retrieval", "user_id", userID)
		} else {
			slog.Warn("vector query failed, lexical-only retrieval", "user_id", userID, "error", err)
		}
		return nil, 0
	}

	// Map vector item ids back onto the candidate texts the retriever
	// matches against.
	textByID := make(map[string]string, len(rows))
	for _, row := range rows {
		textByID[row.ID] = row.Canonical
	}
	hits := make([]retrieval.VectorHit, 0, len(queryResults))
	for _, qr := range queryResults {
		text, ok := textByID[qr.ID]
		if !ok {
			continue
		}
		hits = append(hits, retrieval.VectorHit{Passage: text, Distance: qr.Distance})
	}
	return hits, retrievalAlpha
}

// Maintain recomputes vitality from recency for the scoped entries. Soft
// sweeps only update vitality; hard sweeps also delete entries that decayed
// below the floor, together with their vector items.
func (s *Service) Maintain(ctx context.Context, userID *int32, hard bool) (*MaintenanceReport, error) {
	rows, err := s.store.ListConcepts(ctx, &store.FindConcept{UserID: userID})
	if err != nil {
		return nil, memerrors.StoreUnavailable("failed to load concepts", err)
	}

	report := &MaintenanceReport{Hard: hard}
	now := time.Now()
	ageSum := 0.0
	for _, row := range rows {
		age := now.Sub(time.Unix(row.LastMentionTs, 0))
		row.Vitality = s.decay.Freshness(age)
		if _, err := s.store.UpsertConcept(ctx, row); err != nil {
			return nil, memerrors.StoreUnavailable("failed to update vitality", err)
		}
		report.EntriesSwept++
		ageSum += age.Hours() / 24
	}
	if s.recorder != nil && len(rows) > 0 {
		s.recorder.Observe(metrics.MetricEntryAgeDays, ageSum/float64(len(rows)))
	}

	if hard {
		floor := hardSweepVitalityFloor
		for _, row := range rows {
			if row.Vitality >= floor {
				continue
			}
			if _, err := s.store.DeleteConcepts(ctx, &store.DeleteConcept{ID: &row.ID}); err != nil {
				return nil, memerrors.StoreUnavailable("failed to delete decayed concept", err)
			}
			if s.vectors != nil {
				if err := s.vectors.DeleteWhere(ctx, ConceptCollection, map[string]string{"topic": row.Topic, "user_id": fmt.Sprintf("%d", row.UserID)}); err != nil && !errors.Is(err, vector.ErrUnavailable) {
					slog.Warn("failed to delete vector items for decayed concept", "concept_id", row.ID, "error", err)
				}
			}
			report.EntriesRemoved++
		}

		// Stale session summaries go with a hard sweep too.
		cutoff := now.Add(-30 * 24 * time.Hour).Unix()
		if _, err := s.store.DeleteSessionSummaries(ctx, &store.DeleteSessionSummary{
			UserID:          userID,
			UpdatedBeforeTs: &cutoff,
		}); err != nil {
			return nil, memerrors.StoreUnavailable("failed to prune session summaries", err)
		}
	}
	return report, nil
}
