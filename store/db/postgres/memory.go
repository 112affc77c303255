package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hrygo/mnemos/store"
)

func (d *DB) UpsertConcept(ctx context.Context, upsert *store.Concept) (*store.Concept, error) {
	stmt := `
		INSERT INTO concept (
			id, user_id, topic, canonical, mention_count, thread_ids,
			origin_message_id, first_mention_ts, last_mention_ts, vitality, created_ts
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			canonical = EXCLUDED.canonical,
			mention_count = EXCLUDED.mention_count,
			thread_ids = EXCLUDED.thread_ids,
			last_mention_ts = EXCLUDED.last_mention_ts,
			vitality = EXCLUDED.vitality`
	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.ID,
		upsert.UserID,
		upsert.Topic,
		upsert.Canonical,
		upsert.MentionCount,
		marshalJSON(upsert.ThreadIDs),
		upsert.OriginMessageID,
		upsert.FirstMentionTs,
		upsert.LastMentionTs,
		upsert.Vitality,
		upsert.CreatedTs,
	); err != nil {
		return nil, err
	}
	return upsert, nil
}

func (d *DB) ListConcepts(ctx context.Context, find *store.FindConcept) ([]*store.Concept, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.LastMentionBeforeTs; v != nil {
		where, args = append(where, "last_mention_ts < "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, user_id, topic, canonical, mention_count, thread_ids,
			origin_message_id, first_mention_ts, last_mention_ts, vitality, created_ts
		FROM concept
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY last_mention_ts DESC, id ASC`
	if v := find.Limit; v != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *v)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*store.Concept{}
	for rows.Next() {
		concept := &store.Concept{}
		var threadIDs string
		if err := rows.Scan(
			&concept.ID,
			&concept.UserID,
			&concept.Topic,
			&concept.Canonical,
			&concept.MentionCount,
			&threadIDs,
			&concept.OriginMessageID,
			&concept.FirstMentionTs,
			&concept.LastMentionTs,
			&concept.Vitality,
			&concept.CreatedTs,
		); err != nil {
			return nil, err
		}
		concept.ThreadIDs = unmarshalStrings(threadIDs)
		list = append(list, concept)
	}
	return list, rows.Err()
}

func (d *DB) DeleteConcepts(ctx context.Context, delete *store.DeleteConcept) (int64, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := delete.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := delete.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := delete.MaxVitality; v != nil {
		where, args = append(where, "vitality < "+placeholder(len(args)+1)), append(args, *v)
	}

	result, err := d.db.ExecContext(ctx, `DELETE FROM concept WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (d *DB) UpsertPreference(ctx context.Context, upsert *store.Preference) (*store.Preference, error) {
	var surfacedTs sql.NullInt64
	if upsert.SurfacedTs != nil {
		surfacedTs = sql.NullInt64{Int64: *upsert.SurfacedTs, Valid: true}
	}

	stmt := `
		INSERT INTO preference (
			id, user_id, type, topic, action, sentiment, timeframe, confidence,
			entities, source_message_ids, occurrences, surfaced_ts, captured_ts
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			action = EXCLUDED.action,
			sentiment = EXCLUDED.sentiment,
			timeframe = EXCLUDED.timeframe,
			confidence = EXCLUDED.confidence,
			entities = EXCLUDED.entities,
			source_message_ids = EXCLUDED.source_message_ids,
			occurrences = EXCLUDED.occurrences,
			surfaced_ts = EXCLUDED.surfaced_ts`
	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.ID,
		upsert.UserID,
		upsert.Type,
		upsert.Topic,
		upsert.Action,
		upsert.Sentiment,
		upsert.Timeframe,
		upsert.Confidence,
		marshalJSON(upsert.Entities),
		marshalJSON(upsert.SourceMessageIDs),
		upsert.Occurrences,
		surfacedTs,
		upsert.CapturedTs,
	); err != nil {
		return nil, err
	}
	return upsert, nil
}

func (d *DB) ListPreferences(ctx context.Context, find *store.FindPreference) ([]*store.Preference, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Type; v != nil {
		where, args = append(where, "type = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.MinConfidence; v != nil {
		where, args = append(where, "confidence >= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, user_id, type, topic, action, sentiment, timeframe, confidence,
			entities, source_message_ids, occurrences, surfaced_ts, captured_ts
		FROM preference
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY confidence DESC, id ASC`
	if v := find.Limit; v != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *v)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*store.Preference{}
	for rows.Next() {
		pref := &store.Preference{}
		var entities, sourceIDs string
		var surfacedTs sql.NullInt64
		if err := rows.Scan(
			&pref.ID,
			&pref.UserID,
			&pref.Type,
			&pref.Topic,
			&pref.Action,
			&pref.Sentiment,
			&pref.Timeframe,
			&pref.Confidence,
			&entities,
			&sourceIDs,
			&pref.Occurrences,
			&surfacedTs,
			&pref.CapturedTs,
		); err != nil {
			return nil, err
		}
		pref.Entities = unmarshalStrings(entities)
		pref.SourceMessageIDs = unmarshalInt64s(sourceIDs)
		if surfacedTs.Valid {
			pref.SurfacedTs = &surfacedTs.Int64
		}
		list = append(list, pref)
	}
	return list, rows.Err()
}

func (d *DB) DeletePreferences(ctx context.Context, delete *store.DeletePreference) (int64, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := delete.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := delete.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	result, err := d.db.ExecContext(ctx, `DELETE FROM preference WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
