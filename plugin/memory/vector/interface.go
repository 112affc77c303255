// Package vector defines the vector-store capability the memory engine
// consumes. The engine never implements a vector database itself; it talks to
// an injected Store and degrades to skip-indexing when the store is
// unreachable.
package vector

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the vector store is temporarily
// unreachable. Callers degrade (skip indexing, fall back to lexical-only
// retrieval) rather than failing.
var ErrUnavailable = errors.New("vector store unavailable")

// Item is one indexed entry.
type Item struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Embedding []float32         `json:"embedding,omitempty"`
	Metadata  map[string]string `json:"metadata"`
}

// QueryResult is a similarity hit. Distance is the store's raw distance
// metric; smaller is closer.
type QueryResult struct {
	Item
	Distance float64 `json:"distance"`
}

// Store is the vector-store capability.
type Store interface {
	// EnsureCollection gets or creates a named collection.
	EnsureCollection(ctx context.Context, name string) error

	// Upsert adds or replaces items by id.
	Upsert(ctx context.Context, collection string, items []Item) error

	// Query returns the closest items to the embedding, optionally
	// restricted by exact-match metadata filters.
	Query(ctx context.Context, collection string, embedding []float32, limit int, filter map[string]string) ([]QueryResult, error)

	// Fetch returns items matching the metadata filter, no similarity
	// involved.
	Fetch(ctx context.Context, collection string, filter map[string]string, limit int) ([]Item, error)

	// UpdateMetadata merges metadata into an existing item.
	UpdateMetadata(ctx context.Context, collection, id string, metadata map[string]string) error

	// DeleteWhere removes all items matching the metadata filter.
	DeleteWhere(ctx context.Context, collection string, filter map[string]string) error
}
