package store

import "context"

// SessionSummary is the rolling short-term memory for one (user, session)
// pair. Micro-consolidations append to it; it is discarded when the
// session goes stale.
type SessionSummary struct {
	UserID    int32
	SessionID string
	Summary   string
	TurnCount int
	UpdatedTs int64
}

type FindSessionSummary struct {
	UserID    *int32
	SessionID *string
	Limit     *int
}

type DeleteSessionSummary struct {
	UserID    *int32
	SessionID *string

	// UpdatedBeforeTs deletes summaries untouched since the given unix
	// timestamp. Used by the maintenance sweep.
	UpdatedBeforeTs *int64
}

func (s *Store) UpsertSessionSummary(ctx context.Context, upsert *SessionSummary) (*SessionSummary, error) {
	return s.driver.UpsertSessionSummary(ctx, upsert)
}

func (s *Store) GetSessionSummary(ctx context.Context, userID int32, sessionID string) (*SessionSummary, error) {
	return s.driver.GetSessionSummary(ctx, userID, sessionID)
}

func (s *Store) ListSessionSummaries(ctx context.Context, find *FindSessionSummary) ([]*SessionSummary, error) {
	return s.driver.ListSessionSummaries(ctx, find)
}

func (s *Store) DeleteSessionSummaries(ctx context.Context, delete *DeleteSessionSummary) (int64, error) {
	return s.driver.DeleteSessionSummaries(ctx, delete)
}
