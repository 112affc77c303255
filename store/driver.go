package store

import "context"

// Driver is the low-level database access interface. Each supported
// database engine provides its own implementation under store/db.
type Driver interface {
	GetDB() any
	Close() error

	Migrate(ctx context.Context) error

	// Turn model related methods.
	CreateTurn(ctx context.Context, create *Turn) (*Turn, error)
	ListTurns(ctx context.Context, find *FindTurn) ([]*Turn, error)
	DeleteTurns(ctx context.Context, delete *DeleteTurn) (int64, error)
	ListDueThreads(ctx context.Context, find *FindDueThread) ([]*DueThread, error)

	// Concept model related methods.
	UpsertConcept(ctx context.Context, upsert *Concept) (*Concept, error)
	ListConcepts(ctx context.Context, find *FindConcept) ([]*Concept, error)
	DeleteConcepts(ctx context.Context, delete *DeleteConcept) (int64, error)

	// Preference model related methods.
	UpsertPreference(ctx context.Context, upsert *Preference) (*Preference, error)
	ListPreferences(ctx context.Context, find *FindPreference) ([]*Preference, error)
	DeletePreferences(ctx context.Context, delete *DeletePreference) (int64, error)

	// Consolidation marker related methods.
	UpsertConsolidation(ctx context.Context, upsert *Consolidation) (*Consolidation, error)
	ListConsolidations(ctx context.Context, find *FindConsolidation) ([]*Consolidation, error)

	// Session summary related methods.
	UpsertSessionSummary(ctx context.Context, upsert *SessionSummary) (*SessionSummary, error)
	GetSessionSummary(ctx context.Context, userID int32, sessionID string) (*SessionSummary, error)
	ListSessionSummaries(ctx context.Context, find *FindSessionSummary) ([]*SessionSummary, error)
	DeleteSessionSummaries(ctx context.Context, delete *DeleteSessionSummary) (int64, error)

	// Memory event log related methods.
	CreateMemoryEvent(ctx context.Context, create *MemoryEvent) (*MemoryEvent, error)
	ListMemoryEvents(ctx context.Context, find *FindMemoryEvent) ([]*MemoryEvent, error)

	// Metric bucket related methods.
	UpsertMetricBucket(ctx context.Context, upsert *MetricBucket) error
	ListMetricBuckets(ctx context.Context, find *FindMetricBucket) ([]*MetricBucket, error)
	DeleteMetricBucketsBefore(ctx context.Context, beforeTs int64) (int64, error)
}
