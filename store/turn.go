package store

import "context"

// Turn is a single conversational message persisted for later
// consolidation. Turns are append-only; consolidation never mutates them.
type Turn struct {
	ID        int64
	UserID    int32
	SessionID string
	ThreadID  string
	Role      string
	Content   string
	AgentTag  string
	CreatedTs int64
}

type FindTurn struct {
	ID        *int64
	UserID    *int32
	SessionID *string
	ThreadID  *string

	// AfterTs filters to turns created strictly after the given unix timestamp.
	AfterTs *int64

	// Newest orders results by created_ts descending when set.
	Newest bool
	Limit  *int
}

type DeleteTurn struct {
	UserID   *int32
	ThreadID *string

	// BeforeTs deletes turns created before the given unix timestamp.
	BeforeTs *int64
}

// DueThread identifies a thread with turns newer than its last
// consolidation marker.
type DueThread struct {
	ThreadID string
	UserID   int32
}

type FindDueThread struct {
	UserID *int32
	Limit  *int
}

func (s *Store) CreateTurn(ctx context.Context, create *Turn) (*Turn, error) {
	return s.driver.CreateTurn(ctx, create)
}

func (s *Store) ListTurns(ctx context.Context, find *FindTurn) ([]*Turn, error) {
	return s.driver.ListTurns(ctx, find)
}

// ListRecentTurns returns the newest n turns of a thread in chronological order.
func (s *Store) ListRecentTurns(ctx context.Context, userID int32, threadID string, n int) ([]*Turn, error) {
	turns, err := s.driver.ListTurns(ctx, &FindTurn{
		UserID:   &userID,
		ThreadID: &threadID,
		Newest:   true,
		Limit:    &n,
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *Store) DeleteTurns(ctx context.Context, delete *DeleteTurn) (int64, error) {
	return s.driver.DeleteTurns(ctx, delete)
}

func (s *Store) ListDueThreads(ctx context.Context, find *FindDueThread) ([]*DueThread, error) {
	return s.driver.ListDueThreads(ctx, find)
}
