package store

import "context"

// Preference is a durable user preference or constraint captured from
// classified conversational signals. Like concepts, the primary key is
// deterministic so repeated signals about the same topic merge.
type Preference struct {
	ID               string
	UserID           int32
	Type             string
	Topic            string
	Action           string
	Sentiment        string
	Timeframe        string
	Confidence       float64
	Entities         []string
	SourceMessageIDs []int64
	Occurrences      int
	SurfacedTs       *int64
	CapturedTs       int64
}

type FindPreference struct {
	ID     *string
	UserID *int32
	Type   *string

	// MinConfidence filters to preferences at or above the given confidence.
	MinConfidence *float64

	Limit *int
}

type DeletePreference struct {
	ID     *string
	UserID *int32
}

func (s *Store) UpsertPreference(ctx context.Context, upsert *Preference) (*Preference, error) {
	return s.driver.UpsertPreference(ctx, upsert)
}

func (s *Store) ListPreferences(ctx context.Context, find *FindPreference) ([]*Preference, error) {
	return s.driver.ListPreferences(ctx, find)
}

func (s *Store) GetPreference(ctx context.Context, find *FindPreference) (*Preference, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListPreferences(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) DeletePreferences(ctx context.Context, delete *DeletePreference) (int64, error) {
	return s.driver.DeletePreferences(ctx, delete)
}
