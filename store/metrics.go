package store

import "context"

// MetricBucket is an hourly aggregate of one named metric. The key is
// (bucket_ts, metric); repeated flushes for the same hour overwrite.
type MetricBucket struct {
	BucketTs int64
	Metric   string
	Count    int64
	Sum      float64
	Min      float64
	Max      float64
	P50      float64
	P95      float64
}

type FindMetricBucket struct {
	Metric  *string
	AfterTs *int64
	Limit   *int
}

func (s *Store) UpsertMetricBucket(ctx context.Context, upsert *MetricBucket) error {
	return s.driver.UpsertMetricBucket(ctx, upsert)
}

func (s *Store) ListMetricBuckets(ctx context.Context, find *FindMetricBucket) ([]*MetricBucket, error) {
	return s.driver.ListMetricBuckets(ctx, find)
}

func (s *Store) DeleteMetricBucketsBefore(ctx context.Context, beforeTs int64) (int64, error) {
	return s.driver.DeleteMetricBucketsBefore(ctx, beforeTs)
}
