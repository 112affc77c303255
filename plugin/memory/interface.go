// Package memory defines the memory engine's core types and the facade
// interface the rest of the application calls. Consolidation, classification,
// retrieval and scheduling live in subpackages; callers outside the engine
// only ever see this package.
package memory

import (
	"context"
	"time"
)

// MemoryService is the only surface exposed to the host application.
// Every operation requires an already-verified user identity; this engine
// performs no authentication of its own.
type MemoryService interface {
	// Status reports the user's memory state: whether a rolling session
	// summary exists, how many long-term entries are stored, and when the
	// last consolidation ran.
	Status(ctx context.Context, userID int32) (*Status, error)

	// Consolidate runs a consolidation pass. threadID selects one thread;
	// empty means "all due" up to limit. force re-consolidates threads that
	// already have indexed entries.
	Consolidate(ctx context.Context, userID int32, threadID string, limit int, force bool) (*ConsolidationReport, error)

	// SearchConcepts retrieves the user's stored concepts ranked by a blend
	// of lexical and vector similarity against the query.
	SearchConcepts(ctx context.Context, userID int32, query string, limit int) ([]*ConceptMatch, error)

	// Maintain triggers a decay sweep over long-term entries. Soft by
	// default: vitality is recomputed but nothing is deleted unless hard
	// is set. A nil userID sweeps all users.
	Maintain(ctx context.Context, userID *int32, hard bool) (*MaintenanceReport, error)
}

// Turn is one conversational turn. Turns are created upstream and read-only
// here; the relational store is their source of truth.
type Turn struct {
	ID        int64     `json:"id"`
	UserID    int32     `json:"user_id"`
	SessionID string    `json:"session_id"`
	ThreadID  string    `json:"thread_id"`
	Role      string    `json:"role"` // "user" | "assistant" | "system"
	Content   string    `json:"content"`
	AgentTag  string    `json:"agent_tag,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ConceptEntry is a durable long-term memory concept. Its ID is a pure
// function of (user, normalized topic): repeated mentions merge into the same
// row instead of creating duplicates.
type ConceptEntry struct {
	ID               string    `json:"id"`
	UserID           int32     `json:"user_id"`
	Topic            string    `json:"topic"`     // normalized
	Canonical        string    `json:"canonical"` // display text
	MentionCount     int       `json:"mention_count"`
	ThreadIDs        []string  `json:"thread_ids"`
	OriginMessageID  int64     `json:"origin_message_id"`
	FirstMentionedAt time.Time `json:"first_mentioned_at"`
	LastMentionedAt  time.Time `json:"last_mentioned_at"`
	Vitality         float64   `json:"vitality"`
	CreatedAt        time.Time `json:"created_at"`
}

// PreferenceType classifies a durable preference signal.
type PreferenceType string

const (
	PreferenceTypePreference PreferenceType = "preference"
	PreferenceTypeIntent     PreferenceType = "intent"
	PreferenceTypeConstraint PreferenceType = "constraint"
	PreferenceTypeNeutral    PreferenceType = "neutral"
)

// IsDurable reports whether the type is one of the three persisted kinds.
func (t PreferenceType) IsDurable() bool {
	switch t {
	case PreferenceTypePreference, PreferenceTypeIntent, PreferenceTypeConstraint:
		return true
	default:
		return false
	}
}

// PreferenceRecord is a durable preference/intent/constraint. Confidence is
// merged via a running average across rediscoveries, never blindly
// overwritten, and records below the classification gate never reach storage.
type PreferenceRecord struct {
	ID               string         `json:"id"`
	UserID           int32          `json:"user_id"`
	Type             PreferenceType `json:"type"`
	Topic            string         `json:"topic"`
	Action           string         `json:"action"`
	Sentiment        string         `json:"sentiment"`
	Timeframe        string         `json:"timeframe"`
	Confidence       float64        `json:"confidence"`
	Entities         []string       `json:"entities"`
	SourceMessageIDs []int64        `json:"source_message_ids"`
	Occurrences      int            `json:"occurrences"`
	SurfacedAt       *time.Time     `json:"surfaced_at,omitempty"`
	CapturedAt       time.Time      `json:"captured_at"`
}

// ConsolidationReport carries per-run counts. It is ephemeral and replaced by
// the next run, never accumulated.
type ConsolidationReport struct {
	StartedAt            time.Time `json:"started_at"`
	FinishedAt           time.Time `json:"finished_at"`
	ThreadsScanned       int       `json:"threads_scanned"`
	ThreadsConsolidated  int       `json:"threads_consolidated"`
	ThreadsSkipped       int       `json:"threads_skipped"`
	ThreadsFailed        int       `json:"threads_failed"`
	ConceptsMerged       int       `json:"concepts_merged"`
	PreferencesMerged    int       `json:"preferences_merged"`
	ClassificationErrors int       `json:"classification_errors"`
	ValidationErrors     int       `json:"validation_errors"`
}

// MaintenanceReport summarizes a decay sweep.
type MaintenanceReport struct {
	EntriesSwept   int  `json:"entries_swept"`
	EntriesRemoved int  `json:"entries_removed"`
	Hard           bool `json:"hard"`
}

// Status is the user-facing memory status.
type Status struct {
	HasShortTermMemory bool       `json:"has_short_term_memory"`
	LongTermEntryCount int64      `json:"long_term_entry_count"`
	LastConsolidation  *time.Time `json:"last_consolidation,omitempty"`
}

// ConceptMatch is a ranked concept retrieval result. All three scores lie in
// [0,1].
type ConceptMatch struct {
	Entry        *ConceptEntry `json:"entry"`
	FusedScore   float64       `json:"fused_score"`
	LexicalScore float64       `json:"lexical_score"`
	VectorScore  float64       `json:"vector_score"`
}

// SessionSummary is the rolling per-session short-term memory kept in
// external storage.
type SessionSummary struct {
	UserID    int32     `json:"user_id"`
	SessionID string    `json:"session_id"`
	Summary   string    `json:"summary"`
	UpdatedAt time.Time `json:"updated_at"`
}
