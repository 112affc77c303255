package store

import "context"

// MemoryEvent is an append-only audit record of a memory state change,
// such as a preference being surfaced or a consolidation completing.
type MemoryEvent struct {
	ID        int64
	UserID    int32
	Type      string
	SessionID string
	Payload   string
	CreatedTs int64
}

type FindMemoryEvent struct {
	UserID *int32
	Type   *string
	Limit  *int
}

func (s *Store) CreateMemoryEvent(ctx context.Context, create *MemoryEvent) (*MemoryEvent, error) {
	return s.driver.CreateMemoryEvent(ctx, create)
}

func (s *Store) ListMemoryEvents(ctx context.Context, find *FindMemoryEvent) ([]*MemoryEvent, error) {
	return s.driver.ListMemoryEvents(ctx, find)
}
