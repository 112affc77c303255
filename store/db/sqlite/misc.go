package sqlite

import (
	"context"
	"strings"

	"github.com/hrygo/mnemos/store"
)

func (d *DB) UpsertConsolidation(ctx context.Context, upsert *store.Consolidation) (*store.Consolidation, error) {
	stmt := `
		INSERT INTO consolidation (thread_id, user_id, status, turn_count, consolidated_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (thread_id) DO UPDATE SET
			status = EXCLUDED.status,
			turn_count = EXCLUDED.turn_count,
			consolidated_ts = EXCLUDED.consolidated_ts,
			updated_ts = EXCLUDED.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.ThreadID,
		upsert.UserID,
		upsert.Status,
		upsert.TurnCount,
		upsert.ConsolidatedTs,
		upsert.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return upsert, nil
}

func (d *DB) ListConsolidations(ctx context.Context, find *store.FindConsolidation) ([]*store.Consolidation, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ThreadID; v != nil {
		where, args = append(where, "thread_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Status; v != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT thread_id, user_id, status, turn_count, consolidated_ts, updated_ts
		FROM consolidation
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC, thread_id ASC`
	if v := find.Limit; v != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *v)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*store.Consolidation{}
	for rows.Next() {
		marker := &store.Consolidation{}
		if err := rows.Scan(
			&marker.ThreadID,
			&marker.UserID,
			&marker.Status,
			&marker.TurnCount,
			&marker.ConsolidatedTs,
			&marker.UpdatedTs,
		); err != nil {
			return nil, err
		}
		list = append(list, marker)
	}
	return list, rows.Err()
}

func (d *DB) UpsertSessionSummary(ctx context.Context, upsert *store.SessionSummary) (*store.SessionSummary, error) {
	stmt := `
		INSERT INTO session_summary (user_id, session_id, summary, turn_count, updated_ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, session_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			turn_count = EXCLUDED.turn_count,
			updated_ts = EXCLUDED.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.UserID,
		upsert.SessionID,
		upsert.Summary,
		upsert.TurnCount,
		upsert.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return upsert, nil
}

func (d *DB) GetSessionSummary(ctx context.Context, userID int32, sessionID string) (*store.SessionSummary, error) {
	query := `
		SELECT user_id, session_id, summary, turn_count, updated_ts
		FROM session_summary
		WHERE user_id = ? AND session_id = ?`
	summary := &store.SessionSummary{}
	err := d.db.QueryRowContext(ctx, query, userID, sessionID).Scan(
		&summary.UserID,
		&summary.SessionID,
		&summary.Summary,
		&summary.TurnCount,
		&summary.UpdatedTs,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return summary, nil
}

func (d *DB) ListSessionSummaries(ctx context.Context, find *store.FindSessionSummary) ([]*store.SessionSummary, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.SessionID; v != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT user_id, session_id, summary, turn_count, updated_ts
		FROM session_summary
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC, session_id ASC`
	if v := find.Limit; v != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *v)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*store.SessionSummary{}
	for rows.Next() {
		summary := &store.SessionSummary{}
		if err := rows.Scan(
			&summary.UserID,
			&summary.SessionID,
			&summary.Summary,
			&summary.TurnCount,
			&summary.UpdatedTs,
		); err != nil {
			return nil, err
		}
		list = append(list, summary)
	}
	return list, rows.Err()
}

func (d *DB) DeleteSessionSummaries(ctx context.Context, delete *store.DeleteSessionSummary) (int64, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := delete.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := delete.SessionID; v != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := delete.UpdatedBeforeTs; v != nil {
		where, args = append(where, "updated_ts < "+placeholder(len(args)+1)), append(args, *v)
	}

	result, err := d.db.ExecContext(ctx, `DELETE FROM session_summary WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (d *DB) CreateMemoryEvent(ctx context.Context, create *store.MemoryEvent) (*store.MemoryEvent, error) {
	stmt := `
		INSERT INTO memory_event (user_id, type, session_id, payload, created_ts)
		VALUES (?, ?, ?, ?, ?)`
	result, err := d.db.ExecContext(ctx, stmt,
		create.UserID,
		create.Type,
		create.SessionID,
		create.Payload,
		create.CreatedTs,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	create.ID = id
	return create, nil
}

func (d *DB) ListMemoryEvents(ctx context.Context, find *store.FindMemoryEvent) ([]*store.MemoryEvent, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Type; v != nil {
		where, args = append(where, "type = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, user_id, type, session_id, payload, created_ts
		FROM memory_event
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC`
	if v := find.Limit; v != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *v)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*store.MemoryEvent{}
	for rows.Next() {
		event := &store.MemoryEvent{}
		if err := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.Type,
			&event.SessionID,
			&event.Payload,
			&event.CreatedTs,
		); err != nil {
			return nil, err
		}
		list = append(list, event)
	}
	return list, rows.Err()
}

func (d *DB) UpsertMetricBucket(ctx context.Context, upsert *store.MetricBucket) error {
	stmt := `
		INSERT INTO metric_bucket (bucket_ts, metric, count, sum, min, max, p50, p95)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (bucket_ts, metric) DO UPDATE SET
			count = EXCLUDED.count,
			sum = EXCLUDED.sum,
			min = EXCLUDED.min,
			max = EXCLUDED.max,
			p50 = EXCLUDED.p50,
			p95 = EXCLUDED.p95`
	_, err := d.db.ExecContext(ctx, stmt,
		upsert.BucketTs,
		upsert.Metric,
		upsert.Count,
		upsert.Sum,
		upsert.Min,
		upsert.Max,
		upsert.P50,
		upsert.P95,
	)
	return err
}

func (d *DB) ListMetricBuckets(ctx context.Context, find *store.FindMetricBucket) ([]*store.MetricBucket, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.Metric; v != nil {
		where, args = append(where, "metric = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.AfterTs; v != nil {
		where, args = append(where, "bucket_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT bucket_ts, metric, count, sum, min, max, p50, p95
		FROM metric_bucket
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY bucket_ts DESC, metric ASC`
	if v := find.Limit; v != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *v)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*store.MetricBucket{}
	for rows.Next() {
		bucket := &store.MetricBucket{}
		if err := rows.Scan(
			&bucket.BucketTs,
			&bucket.Metric,
			&bucket.Count,
			&bucket.Sum,
			&bucket.Min,
			&bucket.Max,
			&bucket.P50,
			&bucket.P95,
		); err != nil {
			return nil, err
		}
		list = append(list, bucket)
	}
	return list, rows.Err()
}

func (d *DB) DeleteMetricBucketsBefore(ctx context.Context, beforeTs int64) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM metric_bucket WHERE bucket_ts < ?`, beforeTs)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
