package ai

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// cachedEmbeddingService memoizes embeddings by exact text. Consolidation
// re-embeds the same normalized topics on every pass; caching them saves
// an API round trip per repeated topic.
type cachedEmbeddingService struct {
	inner EmbeddingService

	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*embedEntry
	order    *list.List
}

type embedEntry struct {
	text      string
	vector    []float32
	expiresAt time.Time
	element   *list.Element
}

// NewCachedEmbeddingService wraps an embedding service with an in-memory
// LRU. Capacity defaults to 2048 entries and TTL to one hour.
func NewCachedEmbeddingService(inner EmbeddingService, capacity int, ttl time.Duration) EmbeddingService {
	if capacity <= 0 {
		capacity = 2048
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &cachedEmbeddingService{
		inner:    inner,
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*embedEntry),
		order:    list.New(),
	}
}

func (c *cachedEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.get(text); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.put(text, v)
	return v, nil
}

// EmbedBatch serves cached texts locally and forwards only the misses in a
// single batch, preserving input order in the result.
func (c *cachedEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, t := range texts {
		if v, ok := c.get(t); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	fetched, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, v := range fetched {
		out[missIdx[j]] = v
		c.put(missTexts[j], v)
	}
	return out, nil
}

func (c *cachedEmbeddingService) Dimensions() int {
	return c.inner.Dimensions()
}

var _ EmbeddingService = (*cachedEmbeddingService)(nil)

func (c *cachedEmbeddingService) get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[text]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.remove(e)
		return nil, false
	}
	c.order.MoveToFront(e.element)
	return e.vector, true
}

func (c *cachedEmbeddingService) put(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[text]; ok {
		e.vector = vector
		e.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(e.element)
		return
	}
	e := &embedEntry{text: text, vector: vector, expiresAt: time.Now().Add(c.ttl)}
	e.element = c.order.PushFront(e)
	c.entries[text] = e

	for len(c.entries) > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*embedEntry))
	}
}

// remove expects c.mu held.
func (c *cachedEmbeddingService) remove(e *embedEntry) {
	c.order.Remove(e.element)
	delete(c.entries, e.text)
}
