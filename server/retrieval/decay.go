package retrieval

import (
	"math"
	"sort"
	"time"
)

// Temporal decay defaults: tau(age) = exp(-lambda * age / window).
const (
	DefaultDecayLambda = 0.3
	DefaultDecayWindow = 7 * 24 * time.Hour
)

// DecayModel computes freshness multipliers and time-aware ranking quality.
// Pure and allocation-light; evaluation helpers are for offline use only.
type DecayModel struct {
	Lambda float64
	Window time.Duration
}

// NewDecayModel returns the default model (lambda=0.3 over a 7-day window).
func NewDecayModel() *DecayModel {
	return &DecayModel{Lambda: DefaultDecayLambda, Window: DefaultDecayWindow}
}

// Freshness returns tau(age) in (0,1]. Negative ages clamp to 1.
func (m *DecayModel) Freshness(age time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	window := m.Window
	if window <= 0 {
		window = DefaultDecayWindow
	}
	return math.Exp(-m.Lambda * age.Seconds() / window.Seconds())
}

// RankedItem is one entry of a ranking under evaluation: its graded relevance
// and its age at query time.
type RankedItem struct {
	Relevance float64
	Age       time.Duration
}

// NDCGTime computes time-discounted nDCG@k over a ranking. The gain of an
// item is (2^relevance - 1) * tau(age); the ideal ordering re-sorts by that
// temporal gain, not by relevance or age alone. Returns a value in [0,1];
// an already-ideal ordering scores 1.
func (m *DecayModel) NDCGTime(ranking []RankedItem, k int) float64 {
	if k <= 0 || k > len(ranking) {
		k = len(ranking)
	}
	if k == 0 {
		return 1
	}

	gains := make([]float64, len(ranking))
	for i, item := range ranking {
		gains[i] = (math.Exp2(item.Relevance) - 1) * m.Freshness(item.Age)
	}

	dcg := discountedSum(gains, k)

	ideal := make([]float64, len(gains))
	copy(ideal, gains)
	sort.Sort(sort.Reverse(sort.Float64Slice(ideal)))
	idcg := discountedSum(ideal, k)

	if idcg == 0 {
		// Zero ideal gain: any ordering is vacuously ideal.
		return 1
	}

	ndcg := dcg / idcg
	if ndcg > 1 {
		ndcg = 1
	}
	return ndcg
}

func discountedSum(gains []float64, k int) float64 {
	var sum float64
	for i := 0; i < k; i++ {
		sum += gains[i] / math.Log2(float64(i)+2)
	}
	return sum
}
