package store

import "context"

// Consolidation lifecycle states for a thread.
const (
	ConsolidationStatusPending      = "PENDING"
	ConsolidationStatusRunning      = "RUNNING"
	ConsolidationStatusConsolidated = "CONSOLIDATED"
	ConsolidationStatusFailed       = "FAILED"
)

// Consolidation is the per-thread marker recording whether and when a
// thread's turns have been folded into long-term memory.
type Consolidation struct {
	ThreadID       string
	UserID         int32
	Status         string
	TurnCount      int
	ConsolidatedTs int64
	UpdatedTs      int64
}

type FindConsolidation struct {
	ThreadID *string
	UserID   *int32
	Status   *string
	Limit    *int
}

func (s *Store) UpsertConsolidation(ctx context.Context, upsert *Consolidation) (*Consolidation, error) {
	return s.driver.UpsertConsolidation(ctx, upsert)
}

func (s *Store) ListConsolidations(ctx context.Context, find *FindConsolidation) ([]*Consolidation, error) {
	return s.driver.ListConsolidations(ctx, find)
}

func (s *Store) GetConsolidation(ctx context.Context, threadID string) (*Consolidation, error) {
	limit := 1
	list, err := s.driver.ListConsolidations(ctx, &FindConsolidation{ThreadID: &threadID, Limit: &limit})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
