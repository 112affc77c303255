package store

import "context"

// Concept is a durable long-term memory entry describing a recurring
// topic for one user. The primary key is deterministic, derived from
// the user and the normalized topic, so re-consolidating the same
// material merges instead of duplicating.
type Concept struct {
	ID              string
	UserID          int32
	Topic           string
	Canonical       string
	MentionCount    int
	ThreadIDs       []string
	OriginMessageID int64
	FirstMentionTs  int64
	LastMentionTs   int64
	Vitality        float64
	CreatedTs       int64
}

type FindConcept struct {
	ID     *string
	UserID *int32

	// LastMentionBeforeTs filters to entries not mentioned since the
	// given unix timestamp. Used by the decay sweep.
	LastMentionBeforeTs *int64

	Limit *int
}

type DeleteConcept struct {
	ID     *string
	UserID *int32

	// MaxVitality deletes entries whose vitality has decayed below the
	// given threshold.
	MaxVitality *float64
}

func (s *Store) UpsertConcept(ctx context.Context, upsert *Concept) (*Concept, error) {
	return s.driver.UpsertConcept(ctx, upsert)
}

func (s *Store) ListConcepts(ctx context.Context, find *FindConcept) ([]*Concept, error) {
	return s.driver.ListConcepts(ctx, find)
}

func (s *Store) GetConcept(ctx context.Context, find *FindConcept) (*Concept, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListConcepts(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) DeleteConcepts(ctx context.Context, delete *DeleteConcept) (int64, error) {
	return s.driver.DeleteConcepts(ctx, delete)
}
