package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexicalScorerEmptyQuery(t *testing.T) {
	scorer := NewLexicalScorer([]string{
		"docker containers in production",
		"gardening for beginners",
	})

	scores := scorer.Score("")
	assert.Len(t, scores, 2)
	for _, s := range scores {
		assert.Zero(t, s)
	}
}

func TestLexicalScorerEmptyCorpus(t *testing.T) {
	scorer := NewLexicalScorer(nil)
	assert.Empty(t, scorer.Score("docker"))
}

func TestLexicalScorerSinglePassage(t *testing.T) {
	scorer := NewLexicalScorer([]string{"docker deployment guide"})
	scores := scorer.Score("docker")
	assert.Len(t, scores, 1)
	assert.Greater(t, scores[0], 0.0)
}

func TestLexicalScorerRelevanceOrdering(t *testing.T) {
	scorer := NewLexicalScorer([]string{
		"docker docker docker compose",
		"docker is a container runtime",
		"gardening is relaxing",
	})

	scores := scorer.Score("docker")
	assert.Greater(t, scores[0], scores[1], "higher term frequency should score higher")
	assert.Greater(t, scores[1], 0.0)
	assert.Zero(t, scores[2])
}

func TestLexicalScorerNonNegative(t *testing.T) {
	scorer := NewLexicalScorer([]string{
		"a b c", "a a a", "a", "b c d e f g h i j k",
	})
	for _, q := range []string{"a", "a b", "z", "a z b"} {
		for _, s := range scorer.Score(q) {
			assert.GreaterOrEqual(t, s, 0.0)
		}
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"docker", "compose", "v2"}, Tokenize("Docker-Compose, v2!"))
	assert.Empty(t, Tokenize("  ... "))
}
