// Package retrieval implements lexical scoring, lexical/vector fusion, and
// the temporal decay model used for freshness weighting and offline
// ranking-quality evaluation.
package retrieval

import (
	"math"
	"strings"
	"unicode"
)

// BM25 default parameters. k1 controls term-frequency saturation, b controls
// document-length normalization.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// LexicalScorer scores a query against a fixed passage corpus using BM25.
type LexicalScorer struct {
	k1 float64
	b  float64

	docs  [][]string
	freqs []map[string]int
	df    map[string]int
	avgdl float64
}

// NewLexicalScorer builds a scorer over the given corpus with default
// parameters. An empty corpus is valid and yields empty score slices.
func NewLexicalScorer(corpus []string) *LexicalScorer {
	return NewLexicalScorerWithParams(corpus, DefaultK1, DefaultB)
}

// NewLexicalScorerWithParams builds a scorer with explicit k1/b.
func NewLexicalScorerWithParams(corpus []string, k1, b float64) *LexicalScorer {
	s := &LexicalScorer{
		k1:    k1,
		b:     b,
		docs:  make([][]string, len(corpus)),
		freqs: make([]map[string]int, len(corpus)),
		df:    make(map[string]int),
	}

	var totalLen int
	for i, passage := range corpus {
		tokens := Tokenize(passage)
		s.docs[i] = tokens
		totalLen += len(tokens)

		freq := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freq[tok]++
		}
		s.freqs[i] = freq
		for tok := range freq {
			s.df[tok]++
		}
	}
	if len(corpus) > 0 {
		s.avgdl = float64(totalLen) / float64(len(corpus))
	}
	return s
}

// Score returns one non-negative BM25 score per corpus passage. An empty
// query returns all zeros.
func (s *LexicalScorer) Score(query string) []float64 {
	scores := make([]float64, len(s.docs))

	terms := Tokenize(query)
	if len(terms) == 0 || len(s.docs) == 0 {
		return scores
	}

	n := float64(len(s.docs))
	for _, term := range terms {
		df, ok := s.df[term]
		if !ok {
			continue
		}
		// Non-negative IDF variant, safe for single-passage corpora.
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))

		for i := range s.docs {
			tf := float64(s.freqs[i][term])
			if tf == 0 {
				continue
			}
			dl := float64(len(s.docs[i]))
			norm := 1 - s.b + s.b*dl/s.avgdl
			scores[i] += idf * tf * (s.k1 + 1) / (tf + s.k1*norm)
		}
	}
	return scores
}

// Tokenize lower-cases and splits on any non-letter/non-digit rune.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
