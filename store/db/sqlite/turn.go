package sqlite

import (
	"context"
	"strings"

	"github.com/hrygo/mnemos/store"
)

func (d *DB) CreateTurn(ctx context.Context, create *store.Turn) (*store.Turn, error) {
	stmt := `
		INSERT INTO turn (user_id, session_id, thread_id, role, content, agent_tag, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := d.db.ExecContext(ctx, stmt,
		create.UserID,
		create.SessionID,
		create.ThreadID,
		create.Role,
		create.Content,
		create.AgentTag,
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

func (d *DB) ListTurns(ctx context.Context, find *store.FindTurn) ([]*store.Turn, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.SessionID; v != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ThreadID; v != nil {
		where, args = append(where, "thread_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.AfterTs; v != nil {
		where, args = append(where, "created_ts > "+placeholder(len(args)+1)), append(args, *v)
	}

	order := "ORDER BY created_ts ASC, id ASC"
	if find.Newest {
		order = "ORDER BY created_ts DESC, id DESC"
	}

	query := `
		SELECT id, user_id, session_id, thread_id, role, content, agent_tag, created_ts
		FROM turn
		WHERE ` + strings.Join(where, " AND ") + " " + order
	if v := find.Limit; v != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *v)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*store.Turn{}
	for rows.Next() {
		turn := &store.Turn{}
		if err := rows.Scan(
			&turn.ID,
			&turn.UserID,
			&turn.SessionID,
			&turn.ThreadID,
			&turn.Role,
			&turn.Content,
			&turn.AgentTag,
			&turn.CreatedTs,
		); err != nil {
			return nil, err
		}
		list = append(list, turn)
	}
	return list, rows.Err()
}

func (d *DB) DeleteTurns(ctx context.Context, delete *store.DeleteTurn) (int64, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := delete.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := delete.ThreadID; v != nil {
		where, args = append(where, "thread_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := delete.BeforeTs; v != nil {
		where, args = append(where, "created_ts < "+placeholder(len(args)+1)), append(args, *v)
	}

	result, err := d.db.ExecContext(ctx, `DELETE FROM turn WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (d *DB) ListDueThreads(ctx context.Context, find *store.FindDueThread) ([]*store.DueThread, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UserID; v != nil {
		where, args = append(where, "t.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT t.thread_id, t.user_id
		FROM turn t
		WHERE ` + strings.Join(where, " AND ") + `
		GROUP BY t.thread_id, t.user_id
		HAVING MAX(t.created_ts) > COALESCE(
			(SELECT c.consolidated_ts FROM consolidation c WHERE c.thread_id = t.thread_id AND c.status = 'CONSOLIDATED'), 0)
		ORDER BY MAX(t.created_ts) ASC`
	if v := find.Limit; v != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *v)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*store.DueThread{}
	for rows.Next() {
		due := &store.DueThread{}
		if err := rows.Scan(&due.ThreadID, &due.UserID); err != nil {
			return nil, err
		}
		list = append(list, due)
	}
	return list, rows.Err()
}
