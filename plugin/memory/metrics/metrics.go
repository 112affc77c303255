// Package metrics collects in-process observations about memory operations
// and periodically persists hourly aggregates.
package metrics

import (
	"math"
	"sort"
	"sync"
)

// Well-known metric names.
const (
	MetricQueryLatencyMs     = "query_latency_ms"
	MetricFusedScore         = "fused_score"
	MetricConceptsMerged     = "concepts_merged"
	MetricConceptsCreated    = "concepts_created"
	MetricPreferencesMerged  = "preferences_merged"
	MetricPreferencesCreated = "preferences_created"
	MetricThreadsFailed      = "threads_failed"
	MetricEntryAgeDays       = "entry_age_days"
	MetricActiveEntries      = "active_entries"
)

// Aggregate is a summarized view of one metric since the last snapshot.
type Aggregate struct {
	Metric string
	Count  int64
	Sum    float64
	Min    float64
	Max    float64
	P50    float64
	P95    float64
}

// Recorder accumulates observations in memory. It is safe for concurrent
// use; the persister drains it on a schedule.
type Recorder struct {
	mu       sync.Mutex
	samples  map[string][]float64
	counters map[string]int64
	gauges   map[string]float64
}

func NewRecorder() *Recorder {
	return &Recorder{
		samples:  make(map[string][]float64),
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
	}
}

// Observe records one sample of a distribution metric.
func (r *Recorder) Observe(metric string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[metric] = append(r.samples[metric], value)
}

// Add increments a counter metric.
func (r *Recorder) Add(metric string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[metric] += delta
}

// SetGauge replaces the current value of a gauge metric.
func (r *Recorder) SetGauge(metric string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[metric] = value
}

// Snapshot returns aggregates for everything observed since the previous
// snapshot and resets distributions and counters. Gauges carry over.
func (r *Recorder) Snapshot() []Aggregate {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Aggregate, 0, len(r.samples)+len(r.counters)+len(r.gauges))
	for metric, values := range r.samples {
		if len(values) == 0 {
			continue
		}
		out = append(out, summarize(metric, values))
	}
	for metric, count := range r.counters {
		if count == 0 {
			continue
		}
		out = append(out, Aggregate{Metric: metric, Count: count, Sum: float64(count)})
	}
	for metric, value := range r.gauges {
		out = append(out, Aggregate{Metric: metric, Count: 1, Sum: value, Min: value, Max: value, P50: value, P95: value})
	}

	r.samples = make(map[string][]float64)
	r.counters = make(map[string]int64)

	sort.Slice(out, func(i, j int) bool { return out[i].Metric < out[j].Metric })
	return out
}

func summarize(metric string, values []float64) Aggregate {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	agg := Aggregate{
		Metric: metric,
		Count:  int64(len(sorted)),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P50:    percentile(sorted, 0.50),
		P95:    percentile(sorted, 0.95),
	}
	for _, v := range sorted {
		agg.Sum += v
	}
	return agg
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
