package memory

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/hrygo/mnemos/plugin/ai"
)

// DefaultTopicShiftThreshold is the cosine similarity below which the
// recent conversation window is considered to have drifted away from the
// rolling session summary.
const DefaultTopicShiftThreshold = 0.5

// ConceptAnalyzer extracts recurring topics from a batch of turns via the
// classification capability and normalizes the result.
type ConceptAnalyzer struct {
	classifier ai.ClassificationService
}

func NewConceptAnalyzer(classifier ai.ClassificationService) *ConceptAnalyzer {
	return &ConceptAnalyzer{classifier: classifier}
}

// Extract runs concept extraction over the turns. Concept topics come back
// normalized and deduplicated; an empty batch yields an empty extraction
// without a capability call.
func (a *ConceptAnalyzer) Extract(ctx context.Context, turns []*Turn) (*ai.ConceptExtraction, error) {
	if len(turns) == 0 {
		return &ai.ConceptExtraction{Concepts: []string{}, Entities: []string{}}, nil
	}

	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
	}

	extraction, err := a.classifier.ExtractConcepts(ctx, lines)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	concepts := make([]string, 0, len(extraction.Concepts))
	for _, concept := range extraction.Concepts {
		topic := NormalizeTopic(concept)
		if topic == "" {
			continue
		}
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		concepts = append(concepts, topic)
	}
	extraction.Concepts = concepts
	return extraction, nil
}

// TopicShift is the outcome of drift detection between the rolling session
// summary and the most recent turns.
type TopicShift struct {
	Detected   bool    `json:"detected"`
	Similarity float64 `json:"similarity"`
	Suggestion string  `json:"suggestion,omitempty"`
}

// TopicShiftDetector compares embeddings of the rolling summary and the
// recent window. Without a summary there is nothing to drift from, so it
// never flags.
type TopicShiftDetector struct {
	embedder  ai.EmbeddingService
	threshold float64
}

func NewTopicShiftDetector(embedder ai.EmbeddingService) *TopicShiftDetector {
	return &TopicShiftDetector{
		embedder:  embedder,
		threshold: DefaultTopicShiftThreshold,
	}
}

func (d *TopicShiftDetector) Detect(ctx context.Context, summary string, recent []*Turn) (*TopicShift, error) {
	summary = strings.TrimSpace(summary)
	if summary == "" || len(recent) == 0 {
		return &TopicShift{Detected: false, Similarity: 1}, nil
	}

	window := make([]string, 0, len(recent))
	for _, turn := range recent {
		window = append(window, turn.Content)
	}

	vectors, err := d.embedder.EmbedBatch(ctx, []string{summary, strings.Join(window, "\n")})
	if err != nil {
		return nil, err
	}

	similarity := cosineSimilarity(vectors[0], vectors[1])
	shift := &TopicShift{Similarity: similarity}
	if similarity < d.threshold {
		shift.Detected = true
		shift.Suggestion = "recent conversation has moved away from the session so far; consider starting a new thread"
	}
	return shift, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
