package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotSummarizesAndResets(t *testing.T) {
	r := NewRecorder()
	for _, v := range []float64{10, 20, 30, 40, 50} {
		r.Observe(MetricQueryLatencyMs, v)
	}
	r.Add(MetricConceptsMerged, 3)
	r.SetGauge(MetricActiveEntries, 42)

	aggs := r.Snapshot()
	require.Len(t, aggs, 3)

	byName := map[string]Aggregate{}
	for _, agg := range aggs {
		byName[agg.Metric] = agg
	}

	latency := byName[MetricQueryLatencyMs]
	require.Equal(t, int64(5), latency.Count)
	require.Equal(t, float64(10), latency.Min)
	require.Equal(t, float64(50), latency.Max)
	require.Equal(t, float64(30), latency.P50)
	require.Equal(t, float64(50), latency.P95)
	require.Equal(t, float64(150), latency.Sum)

	require.Equal(t, int64(3), byName[MetricConceptsMerged].Count)
	require.Equal(t, float64(42), byName[MetricActiveEntries].Sum)

	// Distributions and counters reset; gauges persist.
	aggs = r.Snapshot()
	require.Len(t, aggs, 1)
	require.Equal(t, MetricActiveEntries, aggs[0].Metric)
}

func TestPercentileSingleSample(t *testing.T) {
	r := NewRecorder()
	r.Observe(MetricFusedScore, 0.7)

	aggs := r.Snapshot()
	require.Len(t, aggs, 1)
	require.Equal(t, 0.7, aggs[0].P50)
	require.Equal(t, 0.7, aggs[0].P95)
}

func TestSnapshotEmptyRecorder(t *testing.T) {
	require.Empty(t, NewRecorder().Snapshot())
}
