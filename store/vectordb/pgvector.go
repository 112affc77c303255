// Package vectordb provides the pgvector-backed implementation of the
// vector store capability. SQLite deployments run without one; the engine
// degrades to lexical-only retrieval there.
package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/mnemos/plugin/memory/vector"
)

// PgVectorStore stores items in a single table keyed by (collection, id),
// with a jsonb metadata column for exact-match filtering.
type PgVectorStore struct {
	db         *sql.DB
	dimensions int
}

func NewPgVectorStore(db *sql.DB, dimensions int) *PgVectorStore {
	return &PgVectorStore{db: db, dimensions: dimensions}
}

func (s *PgVectorStore) EnsureCollection(ctx context.Context, name string) error {
	stmt := `
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS vector_item (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			text TEXT NOT NULL DEFAULT '',
			embedding vector(` + strconv.Itoa(s.dimensions) + `),
			metadata JSONB NOT NULL DEFAULT '{}',
			PRIMARY KEY (collection, id)
		);
		CREATE INDEX IF NOT EXISTS idx_vector_item_metadata ON vector_item USING GIN (metadata);`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrapf(err, "failed to ensure collection %s", name)
	}
	return nil
}

func (s *PgVectorStore) Upsert(ctx context.Context, collection string, items []vector.Item) error {
	stmt := `
		INSERT INTO vector_item (collection, id, text, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (collection, id) DO UPDATE SET
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`
	for _, item := range items {
		metadata, err := json.Marshal(item.Metadata)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal metadata for %s", item.ID)
		}
		if _, err := s.db.ExecContext(ctx, stmt,
			collection,
			item.ID,
			item.Text,
			pgvector.NewVector(item.Embedding),
			string(metadata),
		); err != nil {
			return wrapUnavailable(err)
		}
	}
	return nil
}

func (s *PgVectorStore) Query(ctx context.Context, collection string, embedding []float32, limit int, filter map[string]string) ([]vector.QueryResult, error) {
	where, args := []string{"collection = $1"}, []any{collection}
	args = append(args, pgvector.NewVector(embedding))
	if len(filter) > 0 {
		clause, arg, err := filterClause(filter, len(args)+1)
		if err != nil {
			return nil, err
		}
		where, args = append(where, clause), append(args, arg)
	}

	query := `
		SELECT id, text, metadata, embedding <=> $2 AS distance
		FROM vector_item
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY distance ASC, id ASC
		LIMIT ` + strconv.Itoa(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	results := []vector.QueryResult{}
	for rows.Next() {
		var result vector.QueryResult
		var metadata string
		if err := rows.Scan(&result.ID, &result.Text, &metadata, &result.Distance); err != nil {
			return nil, err
		}
		result.Metadata = unmarshalMetadata(metadata)
		results = append(results, result)
	}
	return results, rows.Err()
}

func (s *PgVectorStore) Fetch(ctx context.Context, collection string, filter map[string]string, limit int) ([]vector.Item, error) {
	where, args := []string{"collection = $1"}, []any{collection}
	if len(filter) > 0 {
		clause, arg, err := filterClause(filter, len(args)+1)
		if err != nil {
			return nil, err
		}
		where, args = append(where, clause), append(args, arg)
	}

	query := `
		SELECT id, text, metadata
		FROM vector_item
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id ASC
		LIMIT ` + strconv.Itoa(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	items := []vector.Item{}
	for rows.Next() {
		var item vector.Item
		var metadata string
		if err := rows.Scan(&item.ID, &item.Text, &metadata); err != nil {
			return nil, err
		}
		item.Metadata = unmarshalMetadata(metadata)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PgVectorStore) UpdateMetadata(ctx context.Context, collection, id string, metadata map[string]string) error {
	patch, err := json.Marshal(metadata)
	if err != nil {
		return errors.Wrap(err, "failed to marshal metadata patch")
	}
	stmt := `UPDATE vector_item SET metadata = metadata || $3::jsonb WHERE collection = $1 AND id = $2`
	if _, err := s.db.ExecContext(ctx, stmt, collection, id, string(patch)); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func (s *PgVectorStore) DeleteWhere(ctx context.Context, collection string, filter map[string]string) error {
	where, args := []string{"collection = $1"}, []any{collection}
	if len(filter) > 0 {
		clause, arg, err := filterClause(filter, len(args)+1)
		if err != nil {
			return err
		}
		where, args = append(where, clause), append(args, arg)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vector_item WHERE `+strings.Join(where, " AND "), args...); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func filterClause(filter map[string]string, n int) (string, string, error) {
	buf, err := json.Marshal(filter)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal filter")
	}
	return "metadata @> $" + strconv.Itoa(n) + "::jsonb", string(buf), nil
}

func unmarshalMetadata(raw string) map[string]string {
	out := map[string]string{}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func wrapUnavailable(err error) error {
	// Connection-level failures degrade the engine instead of failing it.
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "connection refused") || strings.Contains(err.Error(), "connection reset") {
		return vector.ErrUnavailable
	}
	return err
}
