package vector

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MockStore is an in-memory Store for testing. Similarity uses cosine
// distance. Setting Unreachable makes every call fail with ErrUnavailable so
// tests can exercise degraded paths.
type MockStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Item

	// Unreachable simulates a vector-store outage.
	Unreachable bool
}

// NewMockStore creates an empty mock vector store.
func NewMockStore() *MockStore {
	return &MockStore{
		collections: make(map[string]map[string]Item),
	}
}

func (m *MockStore) EnsureCollection(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unreachable {
		return ErrUnavailable
	}
	if _, ok := m.collections[name]; !ok {
		m.collections[name] = make(map[string]Item)
	}
	return nil
}

func (m *MockStore) Upsert(_ context.Context, collection string, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unreachable {
		return ErrUnavailable
	}
	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]Item)
		m.collections[collection] = coll
	}
	for _, item := range items {
		coll[item.ID] = cloneItem(item)
	}
	return nil
}

func (m *MockStore) Query(_ context.Context, collection string, embedding []float32, limit int, filter map[string]string) ([]QueryResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Unreachable {
		return nil, ErrUnavailable
	}

	var results []QueryResult
	for _, item := range m.collections[collection] {
		if !matchesFilter(item, filter) {
			continue
		}
		results = append(results, QueryResult{
			Item:     cloneItem(item),
			Distance: cosineDistance(embedding, item.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MockStore) Fetch(_ context.Context, collection string, filter map[string]string, limit int) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Unreachable {
		return nil, ErrUnavailable
	}

	var items []Item
	for _, item := range m.collections[collection] {
		if matchesFilter(item, filter) {
			items = append(items, cloneItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MockStore) UpdateMetadata(_ context.Context, collection, id string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unreachable {
		return ErrUnavailable
	}
	coll := m.collections[collection]
	item, ok := coll[id]
	if !ok {
		return nil
	}
	if item.Metadata == nil {
		item.Metadata = make(map[string]string)
	}
	for k, v := range metadata {
		item.Metadata[k] = v
	}
	coll[id] = item
	return nil
}

func (m *MockStore) DeleteWhere(_ context.Context, collection string, filter map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unreachable {
		return ErrUnavailable
	}
	coll := m.collections[collection]
	for id, item := range coll {
		if matchesFilter(item, filter) {
			delete(coll, id)
		}
	}
	return nil
}

// Count returns the number of items in a collection.
func (m *MockStore) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

var _ Store = (*MockStore)(nil)

func matchesFilter(item Item, filter map[string]string) bool {
	for k, want := range filter {
		if item.Metadata[k] != want {
			return false
		}
	}
	return true
}

func cloneItem(item Item) Item {
	out := item
	if item.Metadata != nil {
		out.Metadata = make(map[string]string, len(item.Metadata))
		for k, v := range item.Metadata {
			out.Metadata[k] = v
		}
	}
	if item.Embedding != nil {
		out.Embedding = append([]float32(nil), item.Embedding...)
	}
	return out
}

// cosineDistance returns 1 - cosine similarity, in [0,2].
func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
