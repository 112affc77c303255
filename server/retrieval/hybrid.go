package retrieval

import (
	"sort"
)

// Candidate is one passage under retrieval consideration.
type Candidate struct {
	Text     string
	Metadata map[string]string
}

// VectorHit is an externally supplied vector-similarity hit: the matched
// passage plus its raw distance from the query, as reported by the vector
// store. Smaller distance means closer.
type VectorHit struct {
	Passage  string
	Distance float64
}

// Result is one fused retrieval result. Fused, Lexical and Vector all lie in
// [0,1].
type Result struct {
	Index    int // position in the candidate corpus
	Text     string
	Metadata map[string]string
	Fused    float64
	Lexical  float64
	Vector   float64
}

// Options tunes a hybrid retrieval pass.
type Options struct {
	// Alpha blends vector against lexical: fused = alpha*vector + (1-alpha)*lexical.
	Alpha float64
	// ScoreThreshold drops results whose fused score falls below it.
	ScoreThreshold float64
	// TopK truncates the result list. Zero or negative means unlimited.
	TopK int
}

// DefaultOptions returns an even lexical/vector blend.
func DefaultOptions() Options {
	return Options{Alpha: 0.5, ScoreThreshold: 0, TopK: 10}
}

// HybridRetriever fuses BM25 lexical scores with vector-similarity hits.
// Deterministic given identical inputs; empty inputs yield empty results.
type HybridRetriever struct{}

// NewHybridRetriever creates a hybrid retriever.
func NewHybridRetriever() *HybridRetriever {
	return &HybridRetriever{}
}

// Retrieve scores candidates against the query and fuses in the vector hits.
// Ordering: fused score descending, ties broken by vector score, then by
// original candidate order.
func (r *HybridRetriever) Retrieve(query string, candidates []Candidate, hits []VectorHit, opts Options) []Result {
	if len(candidates) == 0 {
		return []Result{}
	}
	alpha := clamp01(opts.Alpha)

	corpus := make([]string, len(candidates))
	for i, c := range candidates {
		corpus[i] = c.Text
	}
	lexical := NewLexicalScorer(corpus).Score(query)

	// Normalize raw BM25 scores into [0,1] by the batch maximum.
	var maxLex float64
	for _, s := range lexical {
		if s > maxLex {
			maxLex = s
		}
	}
	if maxLex > 0 {
		for i := range lexical {
			lexical[i] /= maxLex
		}
	}

	// First hit per passage wins; hits without a matching candidate are ignored.
	vector := make([]float64, len(candidates))
	byText := make(map[string]int, len(candidates))
	for i, c := range candidates {
		if _, exists := byText[c.Text]; !exists {
			byText[c.Text] = i
		}
	}
	for _, hit := range hits {
		if idx, ok := byText[hit.Passage]; ok && vector[idx] == 0 {
			vector[idx] = DistanceToSimilarity(hit.Distance)
		}
	}

	results := make([]Result, 0, len(candidates))
	for i, c := range candidates {
		fused := alpha*vector[i] + (1-alpha)*lexical[i]
		if fused < opts.ScoreThreshold {
			continue
		}
		results = append(results, Result{
			Index:    i,
			Text:     c.Text,
			Metadata: c.Metadata,
			Fused:    fused,
			Lexical:  lexical[i],
			Vector:   vector[i],
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Fused != results[j].Fused {
			return results[i].Fused > results[j].Fused
		}
		return results[i].Vector > results[j].Vector
	})

	if opts.TopK > 0 && len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results
}

// DistanceToSimilarity converts a non-negative vector distance into a
// similarity in (0,1], monotone decreasing in distance.
func DistanceToSimilarity(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
