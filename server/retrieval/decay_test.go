package retrieval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFreshnessBounds(t *testing.T) {
	m := NewDecayModel()

	assert.InDelta(t, 1.0, m.Freshness(0), 1e-12)
	assert.InDelta(t, 1.0, m.Freshness(-time.Hour), 1e-12)

	week := m.Freshness(7 * 24 * time.Hour)
	month := m.Freshness(30 * 24 * time.Hour)
	assert.Greater(t, week, month)
	assert.Greater(t, month, 0.0)

	// One full window at the default lambda: exp(-0.3).
	assert.InDelta(t, 0.7408, week, 1e-3)
}

func TestNDCGTimeBounds(t *testing.T) {
	models := []*DecayModel{
		NewDecayModel(),
		{Lambda: 0, Window: 24 * time.Hour},
		{Lambda: 2.5, Window: time.Hour},
	}
	ranking := []RankedItem{
		{Relevance: 1, Age: 40 * 24 * time.Hour},
		{Relevance: 3, Age: time.Hour},
		{Relevance: 0, Age: 0},
		{Relevance: 2, Age: 10 * 24 * time.Hour},
	}

	for _, m := range models {
		for k := 1; k <= len(ranking); k++ {
			score := m.NDCGTime(ranking, k)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}

func TestNDCGTimeIdealOrderingScoresOne(t *testing.T) {
	m := NewDecayModel()
	// Descending temporal gain: high relevance and fresh first.
	ranking := []RankedItem{
		{Relevance: 3, Age: 0},
		{Relevance: 2, Age: time.Hour},
		{Relevance: 1, Age: 24 * time.Hour},
		{Relevance: 0, Age: 0},
	}
	assert.InDelta(t, 1.0, m.NDCGTime(ranking, len(ranking)), 1e-12)
}

func TestNDCGTimePenalizesStaleFirst(t *testing.T) {
	m := NewDecayModel()
	// Same relevance, but the stale item ranked first: temporal gain ordering
	// is violated even though relevance ordering is not.
	bad := []RankedItem{
		{Relevance: 2, Age: 60 * 24 * time.Hour},
		{Relevance: 2, Age: 0},
	}
	assert.Less(t, m.NDCGTime(bad, 2), 1.0)
}

func TestNDCGTimeDegenerateInputs(t *testing.T) {
	m := NewDecayModel()

	assert.InDelta(t, 1.0, m.NDCGTime(nil, 5), 1e-12)
	// All-zero relevance: zero ideal gain is vacuously ideal.
	assert.InDelta(t, 1.0, m.NDCGTime([]RankedItem{{Relevance: 0, Age: time.Hour}}, 1), 1e-12)
}
