package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hrygo/mnemos/plugin/ai"
	"github.com/hrygo/mnemos/plugin/memory/metrics"
	"github.com/hrygo/mnemos/plugin/memory/notify"
	"github.com/hrygo/mnemos/plugin/memory/vector"
	"github.com/hrygo/mnemos/store"
)

// DefaultSurfacingThreshold is the merged confidence at which a preference
// is surfaced to the user, once.
const DefaultSurfacingThreshold = 0.8

// ConceptCollection names the vector collection holding concept embeddings.
const ConceptCollection = "concepts"

// vitalityBlend is how far a fresh mention pulls vitality back toward 1.
const vitalityBlend = 0.3

// threadOutcome carries what one thread's consolidation contributed.
type threadOutcome struct {
	conceptsMerged       int
	preferencesMerged    int
	classificationErrors int
	validationErrors     int
	skipped              bool
}

// Engine folds raw turns into durable concepts and preferences. It is the
// write side of the memory system; retrieval is layered on top by the
// service.
type Engine struct {
	store      *store.Store
	classifier *PreferenceClassifier
	analyzer   *ConceptAnalyzer
	detector   *TopicShiftDetector
	embedder   ai.EmbeddingService
	vectors    vector.Store
	notifier   notify.Notifier
	recorder   *metrics.Recorder

	surfacingThreshold float64
	group              singleflight.Group
}

func NewEngine(
	st *store.Store,
	classification ai.ClassificationService,
	embedder ai.EmbeddingService,
	vectors vector.Store,
	notifier notify.Notifier,
	recorder *metrics.Recorder,
	surfacingThreshold float64,
) *Engine {
	if surfacingThreshold <= 0 || surfacingThreshold > 1 {
		surfacingThreshold = DefaultSurfacingThreshold
	}
	return &Engine{
		store:              st,
		classifier:         NewPreferenceClassifier(classification),
		analyzer:           NewConceptAnalyzer(classification),
		detector:           NewTopicShiftDetector(embedder),
		embedder:           embedder,
		vectors:            vectors,
		notifier:           notifier,
		recorder:           recorder,
		surfacingThreshold: surfacingThreshold,
	}
}

// Consolidate folds one thread, or all due threads when threadID is empty,
// into long-term memory. A thread already marked consolidated is skipped
// unless it has newer turns or force is set. One failing thread never
// aborts the rest of the pass.
func (e *Engine) Consolidate(ctx context.Context, userID int32, threadID string, limit int, force bool) (*ConsolidationReport, error) {
	report := &ConsolidationReport{StartedAt: time.Now()}

	var threads []string
	if threadID != "" {
		threads = []string{threadID}
	} else {
		if limit <= 0 {
			limit = 50
		}
		due, err := e.store.ListDueThreads(ctx, &store.FindDueThread{UserID: &userID, Limit: &limit})
		if err != nil {
			return nil, errors.Wrap(err, "failed to list due threads")
		}
		for _, d := range due {
			threads = append(threads, d.ThreadID)
		}
	}

	for _, thread := range threads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.ThreadsScanned++

		outcome, err := e.consolidateThread(ctx, userID, thread, force)
		if err != nil {
			report.ThreadsFailed++
			if e.recorder != nil {
				e.recorder.Add(metrics.MetricThreadsFailed, 1)
			}
			slog.Warn("thread consolidation failed", "user_id", userID, "thread_id", thread, "error", err)
			continue
		}
		if outcome.skipped {
			report.ThreadsSkipped++
			continue
		}
		report.ThreadsConsolidated++
		report.ConceptsMerged += outcome.conceptsMerged
		report.PreferencesMerged += outcome.preferencesMerged
		report.ClassificationErrors += outcome.classificationErrors
		report.ValidationErrors += outcome.validationErrors
	}

	report.FinishedAt = time.Now()
	// Idle sweeps with nothing to scan stay out of the event log.
	if report.ThreadsScanned > 0 {
		e.emitEvent(ctx, userID, "", notify.EventConsolidationDone, map[string]string{
			"threads_consolidated": fmt.Sprintf("%d", report.ThreadsConsolidated),
			"threads_failed":       fmt.Sprintf("%d", report.ThreadsFailed),
		})
	}
	return report, nil
}

// consolidateThread is singleflight-guarded so concurrent passes over the
// same thread collapse into one execution.
func (e *Engine) consolidateThread(ctx context.Context, userID int32, threadID string, force bool) (*threadOutcome, error) {
	key := fmt.Sprintf("%d|%s", userID, threadID)
	v, err, _ := e.group.Do(key, func() (any, error) {
		return e.doConsolidateThread(ctx, userID, threadID, force)
	})
	if err != nil {
		return nil, err
	}
	return v.(*threadOutcome), nil
}

func (e *Engine) doConsolidateThread(ctx context.Context, userID int32, threadID string, force bool) (*threadOutcome, error) {
	outcome := &threadOutcome{}

	marker, err := e.store.GetConsolidation(ctx, threadID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load consolidation marker")
	}

	find := &store.FindTurn{UserID: &userID, ThreadID: &threadID}
	if !force && marker != nil && marker.Status == store.ConsolidationStatusConsolidated {
		find.AfterTs = &marker.ConsolidatedTs
	}
	rows, err := e.store.ListTurns(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load turns")
	}
	if len(rows) == 0 {
		outcome.skipped = true
		return outcome, nil
	}
	turns := turnsFromStore(rows)

	now := time.Now()
	if _, err := e.store.UpsertConsolidation(ctx, &store.Consolidation{
		ThreadID:       threadID,
		UserID:         userID,
		Status:         store.ConsolidationStatusRunning,
		TurnCount:      len(rows),
		ConsolidatedTs: consolidatedTs(marker),
		UpdatedTs:      now.Unix(),
	}); err != nil {
		return nil, errors.Wrap(err, "failed to mark thread running")
	}

	// Signal classification and concept extraction are independent stages;
	// run them in parallel.
	var signals []*ClassifiedSignal
	var extraction *ai.ConceptExtraction
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		signals, outcome.classificationErrors = e.classifier.ClassifyBatch(groupCtx, turns, recentContents(turns))
		return nil
	})
	group.Go(func() error {
		var extractErr error
		extraction, extractErr = e.analyzer.Extract(groupCtx, turns)
		return extractErr
	})
	if err := group.Wait(); err != nil {
		e.markFailed(ctx, userID, threadID, marker, len(rows))
		return nil, errors.Wrap(err, "concept extraction failed")
	}

	lastTurn := rows[len(rows)-1]
	merged, created, validationErrs, err := e.mergeConcepts(ctx, userID, threadID, extraction.Concepts, lastTurn)
	if err != nil {
		e.markFailed(ctx, userID, threadID, marker, len(rows))
		return nil, err
	}
	outcome.conceptsMerged = merged + created
	outcome.validationErrors += validationErrs

	prefMerged, prefValidationErrs, err := e.mergePreferences(ctx, userID, signals)
	if err != nil {
		e.markFailed(ctx, userID, threadID, marker, len(rows))
		return nil, err
	}
	outcome.preferencesMerged = prefMerged
	outcome.validationErrors += prefValidationErrs

	e.indexConcepts(ctx, userID, extraction.Concepts)
	e.detectTopicShift(ctx, userID, lastTurn.SessionID, turns)
	e.updateSessionSummary(ctx, userID, lastTurn.SessionID, extraction.Summary, len(rows), false)

	if _, err := e.store.UpsertConsolidation(ctx, &store.Consolidation{
		ThreadID:       threadID,
		UserID:         userID,
		Status:         store.ConsolidationStatusConsolidated,
		TurnCount:      len(rows),
		ConsolidatedTs: lastTurn.CreatedTs,
		UpdatedTs:      time.Now().Unix(),
	}); err != nil {
		return nil, errors.Wrap(err, "failed to mark thread consolidated")
	}

	if e.recorder != nil {
		e.recorder.Add(metrics.MetricConceptsMerged, int64(merged))
		e.recorder.Add(metrics.MetricConceptsCreated, int64(created))
		e.recorder.Add(metrics.MetricPreferencesMerged, int64(prefMerged))
	}
	return outcome, nil
}

func consolidatedTs(marker *store.Consolidation) int64 {
	if marker == nil {
		return 0
	}
	return marker.ConsolidatedTs
}

func (e *Engine) markFailed(ctx context.Context, userID int32, threadID string, marker *store.Consolidation, turnCount int) {
	_, err := e.store.UpsertConsolidation(ctx, &store.Consolidation{
		ThreadID:       threadID,
		UserID:         userID,
		Status:         store.ConsolidationStatusFailed,
		TurnCount:      turnCount,
		ConsolidatedTs: consolidatedTs(marker),
		UpdatedTs:      time.Now().Unix(),
	})
	if err != nil {
		slog.Warn("failed to mark thread failed", "thread_id", threadID, "error", err)
	}
}

// mergeConcepts upserts each extracted topic under its deterministic id.
func (e *Engine) mergeConcepts(ctx context.Context, userID int32, threadID string, topics []string, lastTurn *store.Turn) (merged, created, validationErrs int, err error) {
	for _, topic := range topics {
		normalized := NormalizeTopic(topic)
		if normalized == "" {
			validationErrs++
			continue
		}
		id := ConceptID(userID, normalized)

		existing, err := e.store.GetConcept(ctx, &store.FindConcept{ID: &id})
		if err != nil {
			return merged, created, validationErrs, errors.Wrap(err, "failed to load concept")
		}

		if existing == nil {
			row := &store.Concept{
				ID:              id,
				UserID:          userID,
				Topic:           normalized,
				Canonical:       topic,
				MentionCount:    1,
				ThreadIDs:       []string{threadID},
				OriginMessageID: lastTurn.ID,
				FirstMentionTs:  lastTurn.CreatedTs,
				LastMentionTs:   lastTurn.CreatedTs,
				Vitality:        1,
				CreatedTs:       time.Now().Unix(),
			}
			if _, err := e.store.UpsertConcept(ctx, row); err != nil {
				return merged, created, validationErrs, errors.Wrap(err, "failed to create concept")
			}
			created++
			continue
		}

		existing.MentionCount++
		existing.ThreadIDs = appendUnique(existing.ThreadIDs, threadID)
		if lastTurn.CreatedTs > existing.LastMentionTs {
			existing.LastMentionTs = lastTurn.CreatedTs
		}
		existing.Vitality = clamp01(existing.Vitality + (1-existing.Vitality)*vitalityBlend)
		if _, err := e.store.UpsertConcept(ctx, existing); err != nil {
			return merged, created, validationErrs, errors.Wrap(err, "failed to merge concept")
		}
		merged++
	}
	return merged, created, validationErrs, nil
}

// mergePreferences folds classified signals into preference records.
// Confidence merges as a running average over occurrences; crossing the
// surfacing threshold fires exactly one notification.
func (e *Engine) mergePreferences(ctx context.Context, userID int32, signals []*ClassifiedSignal) (merged, validationErrs int, err error) {
	for _, classified := range signals {
		signal := classified.Signal
		if signal.Confidence < 0 || signal.Confidence > 1 {
			validationErrs++
			continue
		}
		id := PreferenceID(userID, PreferenceType(signal.Type), signal.Topic)

		existing, err := e.store.GetPreference(ctx, &store.FindPreference{ID: &id})
		if err != nil {
			return merged, validationErrs, errors.Wrap(err, "failed to load preference")
		}

		var row *store.Preference
		if existing == nil {
			row = &store.Preference{
				ID:               id,
				UserID:           userID,
				Type:             signal.Type,
				Topic:            signal.Topic,
				Action:           signal.Action,
				Sentiment:        signal.Sentiment,
				Timeframe:        signal.Timeframe,
				Confidence:       signal.Confidence,
				Entities:         signal.Entities,
				SourceMessageIDs: []int64{classified.Turn.ID},
				Occurrences:      1,
				CapturedTs:       time.Now().Unix(),
			}
		} else {
			row = existing
			n := float64(row.Occurrences)
			row.Confidence = (row.Confidence*n + signal.Confidence) / (n + 1)
			row.Occurrences++
			row.Action = signal.Action
			row.Sentiment = signal.Sentiment
			row.Timeframe = signal.Timeframe
			row.Entities = unionStrings(row.Entities, signal.Entities)
			row.SourceMessageIDs = appendUniqueInt64(row.SourceMessageIDs, classified.Turn.ID)
		}

		surfacedNow := row.SurfacedTs == nil && row.Confidence >= e.surfacingThreshold
		if surfacedNow {
			ts := time.Now().Unix()
			row.SurfacedTs = &ts
		}

		if _, err := e.store.UpsertPreference(ctx, row); err != nil {
			return merged, validationErrs, errors.Wrap(err, "failed to upsert preference")
		}
		merged++

		if surfacedNow {
			e.emitEvent(ctx, userID, classified.Turn.SessionID, notify.EventPreferenceSurfaced, map[string]string{
				"preference_id": row.ID,
				"type":          row.Type,
				"topic":         row.Topic,
				"confidence":    fmt.Sprintf("%.2f", row.Confidence),
			})
		}
	}
	return merged, validationErrs, nil
}

// indexConcepts embeds the merged topics and upserts them into the vector
// store. An unreachable vector store degrades to skip-indexing.
func (e *Engine) indexConcepts(ctx context.Context, userID int32, topics []string) {
	if e.vectors == nil || e.embedder == nil || len(topics) == 0 {
		return
	}

	embeddings, err := e.embedder.EmbedBatch(ctx, topics)
	if err != nil {
		slog.Warn("embedding failed, skipping vector indexing", "user_id", userID, "error", err)
		return
	}

	items := make([]vector.Item, 0, len(topics))
	for i, topic := range topics {
		items = append(items, vector.Item{
			ID:        ConceptID(userID, NormalizeTopic(topic)),
			Text:      topic,
			Embedding: embeddings[i],
			Metadata: map[string]string{
				"user_id": fmt.Sprintf("%d", userID),
				"topic":   NormalizeTopic(topic),
			},
		})
	}
	if err := e.vectors.Upsert(ctx, ConceptCollection, items); err != nil {
		if errors.Is(err, vector.ErrUnavailable) {
			slog.Warn("vector store unavailable, skipping indexing", "user_id", userID)
			return
		}
		slog.Warn("vector upsert failed", "user_id", userID, "error", err)
	}
}

// detectTopicShift compares the session's rolling summary against the new
// turn window and emits an event when the conversation has drifted. Runs
// before the summary is rolled forward so the comparison baseline is the
// pre-batch state. Best effort; a failed embedding never fails the pass.
func (e *Engine) detectTopicShift(ctx context.Context, userID int32, sessionID string, turns []*Turn) {
	if e.detector == nil || e.embedder == nil || sessionID == "" {
		return
	}
	existing, err := e.store.GetSessionSummary(ctx, userID, sessionID)
	if err != nil || existing == nil || existing.Summary == "" {
		return
	}
	shift, err := e.detector.Detect(ctx, existing.Summary, turns)
	if err != nil {
		slog.Warn("topic shift detection failed", "user_id", userID, "error", err)
		return
	}
	if !shift.Detected {
		return
	}
	e.emitEvent(ctx, userID, sessionID, notify.EventTopicShift, map[string]string{
		"similarity": fmt.Sprintf("%.3f", shift.Similarity),
		"suggestion": shift.Suggestion,
	})
}

// updateSessionSummary writes the batch summary into the session's
// short-term memory. A full consolidation pass replaces the rolling
// summary; a micro pass appends to it, to be compacted by the next full
// pass.
func (e *Engine) updateSessionSummary(ctx context.Context, userID int32, sessionID, summary string, turnCount int, appendToExisting bool) {
	if sessionID == "" || summary == "" {
		return
	}

	rolled := summary
	total := turnCount
	if appendToExisting {
		existing, err := e.store.GetSessionSummary(ctx, userID, sessionID)
		if err != nil {
			slog.Warn("failed to load session summary", "user_id", userID, "error", err)
			return
		}
		if existing != nil && existing.Summary != "" {
			rolled = existing.Summary + "\n" + summary
			total += existing.TurnCount
		}
	}
	if _, err := e.store.UpsertSessionSummary(ctx, &store.SessionSummary{
		UserID:    userID,
		SessionID: sessionID,
		Summary:   rolled,
		TurnCount: total,
		UpdatedTs: time.Now().Unix(),
	}); err != nil {
		slog.Warn("failed to update session summary", "user_id", userID, "error", err)
	}
}

// emitEvent records the event and notifies live subscribers.
func (e *Engine) emitEvent(ctx context.Context, userID int32, sessionID string, eventType notify.EventType, payload map[string]string) {
	buf, err := json.Marshal(payload)
	if err != nil {
		buf = []byte("{}")
	}
	if _, err := e.store.CreateMemoryEvent(ctx, &store.MemoryEvent{
		UserID:    userID,
		Type:      string(eventType),
		SessionID: sessionID,
		Payload:   string(buf),
		CreatedTs: time.Now().Unix(),
	}); err != nil {
		slog.Warn("failed to record memory event", "type", eventType, "error", err)
	}
	if e.notifier != nil {
		e.notifier.Notify(notify.Event{
			Type:      eventType,
			UserID:    userID,
			SessionID: sessionID,
			Payload:   payload,
		})
	}
}

func recentContents(turns []*Turn) []string {
	const window = 5
	start := len(turns) - window
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, window)
	for _, turn := range turns[start:] {
		out = append(out, turn.Content)
	}
	return out
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func unionStrings(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, v := range b {
		out = appendUnique(out, v)
	}
	return out
}

func appendUniqueInt64(list []int64, value int64) []int64 {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
