package memory

import (
	"time"

	"github.com/hrygo/mnemos/store"
)

func conceptFromStore(row *store.Concept) *ConceptEntry {
	return &ConceptEntry{
		ID:               row.ID,
		UserID:           row.UserID,
		Topic:            row.Topic,
		Canonical:        row.Canonical,
		MentionCount:     row.MentionCount,
		ThreadIDs:        row.ThreadIDs,
		OriginMessageID:  row.OriginMessageID,
		FirstMentionedAt: time.Unix(row.FirstMentionTs, 0),
		LastMentionedAt:  time.Unix(row.LastMentionTs, 0),
		Vitality:         row.Vitality,
		CreatedAt:        time.Unix(row.CreatedTs, 0),
	}
}

func preferenceFromStore(row *store.Preference) *PreferenceRecord {
	record := &PreferenceRecord{
		ID:               row.ID,
		UserID:           row.UserID,
		Type:             PreferenceType(row.Type),
		Topic:            row.Topic,
		Action:           row.Action,
		Sentiment:        row.Sentiment,
		Timeframe:        row.Timeframe,
		Confidence:       row.Confidence,
		Entities:         row.Entities,
		SourceMessageIDs: row.SourceMessageIDs,
		Occurrences:      row.Occurrences,
		CapturedAt:       time.Unix(row.CapturedTs, 0),
	}
	if row.SurfacedTs != nil {
		surfacedAt := time.Unix(*row.SurfacedTs, 0)
		record.SurfacedAt = &surfacedAt
	}
	return record
}

func turnFromStore(row *store.Turn) *Turn {
	return &Turn{
		ID:        row.ID,
		UserID:    row.UserID,
		SessionID: row.SessionID,
		ThreadID:  row.ThreadID,
		Role:      row.Role,
		Content:   row.Content,
		AgentTag:  row.AgentTag,
		Timestamp: time.Unix(row.CreatedTs, 0),
	}
}

func turnsFromStore(rows []*store.Turn) []*Turn {
	turns := make([]*Turn, 0, len(rows))
	for _, row := range rows {
		turns = append(turns, turnFromStore(row))
	}
	return turns
}
