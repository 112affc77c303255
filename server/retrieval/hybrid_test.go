package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates(texts ...string) []Candidate {
	out := make([]Candidate, len(texts))
	for i, t := range texts {
		out[i] = Candidate{Text: t}
	}
	return out
}

func TestRetrieveEmptyInputs(t *testing.T) {
	r := NewHybridRetriever()

	assert.Empty(t, r.Retrieve("docker", nil, nil, DefaultOptions()))
	assert.Empty(t, r.Retrieve("", nil, nil, DefaultOptions()))

	// Empty query against a corpus still returns results, all lexical-zero.
	results := r.Retrieve("", candidates("a", "b"), nil, Options{Alpha: 0.5, TopK: 10})
	assert.Len(t, results, 2)
	for _, res := range results {
		assert.Zero(t, res.Lexical)
	}
}

func TestRetrieveScoreBounds(t *testing.T) {
	r := NewHybridRetriever()
	corpus := candidates(
		"docker containers in production",
		"docker compose cheat sheet",
		"gardening for beginners",
	)
	hits := []VectorHit{
		{Passage: "docker compose cheat sheet", Distance: 0.1},
		{Passage: "gardening for beginners", Distance: 2.5},
	}

	for _, alpha := range []float64{0, 0.25, 0.5, 0.75, 1} {
		results := r.Retrieve("docker compose", corpus, hits, Options{Alpha: alpha, TopK: 10})
		require.NotEmpty(t, results)
		for _, res := range results {
			assert.GreaterOrEqual(t, res.Fused, 0.0)
			assert.LessOrEqual(t, res.Fused, 1.0)
			assert.GreaterOrEqual(t, res.Lexical, 0.0)
			assert.LessOrEqual(t, res.Lexical, 1.0)
			assert.GreaterOrEqual(t, res.Vector, 0.0)
			assert.LessOrEqual(t, res.Vector, 1.0)
		}
	}
}

func TestRetrieveDeterministic(t *testing.T) {
	r := NewHybridRetriever()
	corpus := candidates("alpha beta", "beta gamma", "gamma delta")
	hits := []VectorHit{{Passage: "beta gamma", Distance: 0.3}}

	first := r.Retrieve("beta", corpus, hits, DefaultOptions())
	second := r.Retrieve("beta", corpus, hits, DefaultOptions())
	assert.Equal(t, first, second)
}

func TestRetrieveRanking(t *testing.T) {
	r := NewHybridRetriever()
	corpus := candidates(
		"docker deployment notes",
		"kubernetes cluster setup",
		"docker and kubernetes together",
	)
	hits := []VectorHit{
		{Passage: "kubernetes cluster setup", Distance: 0.0}, // similarity 1.0
	}

	results := r.Retrieve("docker", corpus, hits, Options{Alpha: 0.9, TopK: 10})
	require.Len(t, results, 3)
	// With alpha heavily favoring vector, the exact vector match leads.
	assert.Equal(t, "kubernetes cluster setup", results[0].Text)
}

func TestRetrieveThresholdAndTopK(t *testing.T) {
	r := NewHybridRetriever()
	corpus := candidates("docker a", "docker b", "unrelated passage")

	results := r.Retrieve("docker", corpus, nil, Options{Alpha: 0, ScoreThreshold: 0.1, TopK: 1})
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Text, "docker")
}

func TestRetrieveTieBreakByVectorThenOrder(t *testing.T) {
	r := NewHybridRetriever()
	// Identical lexical profile, no query terms: all fused scores are
	// vector-only.
	corpus := candidates("one", "two", "three")
	hits := []VectorHit{
		{Passage: "three", Distance: 0.5},
		{Passage: "two", Distance: 0.5},
	}

	results := r.Retrieve("", corpus, hits, Options{Alpha: 1, TopK: 10})
	require.Len(t, results, 3)
	// "two" and "three" tie on both fused and vector; original corpus order
	// breaks the tie.
	assert.Equal(t, "two", results[0].Text)
	assert.Equal(t, "three", results[1].Text)
	assert.Equal(t, "one", results[2].Text)
}

func TestDistanceToSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, DistanceToSimilarity(0), 1e-12)
	assert.InDelta(t, 0.5, DistanceToSimilarity(1), 1e-12)
	assert.InDelta(t, 1.0, DistanceToSimilarity(-3), 1e-12) // clamped
	assert.Greater(t, DistanceToSimilarity(0.2), DistanceToSimilarity(0.8))
}
