package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"sync/atomic"
)

// MockClassificationService is a scriptable in-memory ClassificationService
// for testing. Results are matched by substring against the message; calls are
// counted so tests can assert the expensive stage was (not) invoked.
type MockClassificationService struct {
	mu sync.Mutex

	// Signals maps a message substring to the classification to return.
	Signals map[string]*SignalClassification
	// Extraction is returned by every ExtractConcepts call.
	Extraction *ConceptExtraction

	// FailSignalErr, when set, fails ClassifySignal for messages containing FailSignalOn.
	FailSignalOn  string
	FailSignalErr error
	// FailExtractErr, when set, fails every ExtractConcepts call.
	FailExtractErr error

	signalCalls  int
	extractCalls int
}

// NewMockClassificationService creates an empty mock.
func NewMockClassificationService() *MockClassificationService {
	return &MockClassificationService{
		Signals: make(map[string]*SignalClassification),
		Extraction: &ConceptExtraction{
			Summary:  "",
			Concepts: []string{},
			Entities: []string{},
		},
	}
}

// ClassifySignal returns the scripted classification for the message,
// defaulting to a neutral signal.
func (m *MockClassificationService) ClassifySignal(_ context.Context, message string, _ []string) (*SignalClassification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signalCalls++

	if m.FailSignalErr != nil && (m.FailSignalOn == "" || strings.Contains(message, m.FailSignalOn)) {
		return nil, m.FailSignalErr
	}

	for substr, result := range m.Signals {
		if strings.Contains(message, substr) {
			out := *result
			return &out, nil
		}
	}
	return &SignalClassification{
		Type:       "neutral",
		Topic:      "",
		Sentiment:  "neutral",
		Confidence: 0.5,
		Entities:   []string{},
	}, nil
}

// ExtractConcepts returns the scripted extraction.
func (m *MockClassificationService) ExtractConcepts(_ context.Context, _ []string) (*ConceptExtraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractCalls++

	if m.FailExtractErr != nil {
		return nil, m.FailExtractErr
	}
	out := *m.Extraction
	return &out, nil
}

// SignalCalls returns how many times ClassifySignal was invoked.
func (m *MockClassificationService) SignalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signalCalls
}

// ExtractCalls returns how many times ExtractConcepts was invoked.
func (m *MockClassificationService) ExtractCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extractCalls
}

var _ ClassificationService = (*MockClassificationService)(nil)

// MockEmbeddingService produces deterministic pseudo-embeddings from text
// hashes. Equal texts get equal vectors, so cosine comparisons are stable.
type MockEmbeddingService struct {
	// Err, when set, fails every call.
	Err error

	dimensions int
	calls      atomic.Int32
}

// NewMockEmbeddingService creates a mock embedding service.
func NewMockEmbeddingService(dimensions int) *MockEmbeddingService {
	if dimensions <= 0 {
		dimensions = 8
	}
	return &MockEmbeddingService{dimensions: dimensions}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *MockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = pseudoEmbed(text, m.dimensions)
	}
	return vectors, nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

// EmbedCalls reports how many backend embedding calls were made.
func (m *MockEmbeddingService) EmbedCalls() int {
	return int(m.calls.Load())
}

var _ EmbeddingService = (*MockEmbeddingService)(nil)

// pseudoEmbed derives a unit vector from token hashes.
func pseudoEmbed(text string, dims int) []float32 {
	vec := make([]float64, dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		seed := h.Sum32()
		for d := 0; d < dims; d++ {
			seed = seed*1664525 + 1013904223
			vec[d] += float64(int32(seed)) / float64(math.MaxInt32)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, dims)
	if norm == 0 {
		return out
	}
	for d, v := range vec {
		out[d] = float32(v / norm)
	}
	return out
}
