package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/mnemos/store"
)

const (
	defaultFlushInterval = time.Hour
	defaultRetention     = 30 * 24 * time.Hour
)

// Persister drains a Recorder into hourly metric buckets and prunes
// buckets past retention.
type Persister struct {
	recorder  *Recorder
	store     *store.Store
	interval  time.Duration
	retention time.Duration
}

func NewPersister(recorder *Recorder, st *store.Store) *Persister {
	return &Persister{
		recorder:  recorder,
		store:     st,
		interval:  defaultFlushInterval,
		retention: defaultRetention,
	}
}

// Start flushes on a ticker until ctx is canceled, then performs one
// final flush so a clean shutdown loses nothing.
func (p *Persister) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Flush(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

// Flush writes the current snapshot into the bucket for the current hour
// and prunes expired buckets.
func (p *Persister) Flush(ctx context.Context) {
	aggregates := p.recorder.Snapshot()
	if len(aggregates) == 0 {
		return
	}

	bucketTs := time.Now().UTC().Truncate(time.Hour).Unix()
	for _, agg := range aggregates {
		err := p.store.UpsertMetricBucket(ctx, &store.MetricBucket{
			BucketTs: bucketTs,
			Metric:   agg.Metric,
			Count:    agg.Count,
			Sum:      agg.Sum,
			Min:      agg.Min,
			Max:      agg.Max,
			P50:      agg.P50,
			P95:      agg.P95,
		})
		if err != nil {
			slog.Warn("failed to persist metric bucket", "metric", agg.Metric, "error", err)
		}
	}

	cutoff := time.Now().Add(-p.retention).Unix()
	if _, err := p.store.DeleteMetricBucketsBefore(ctx, cutoff); err != nil {
		slog.Warn("failed to prune metric buckets", "error", err)
	}
}
