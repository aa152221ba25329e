package service

import (
	"fmt"

	"github.com/dreamware/terrastore/internal/errs"
	"github.com/dreamware/terrastore/internal/storage"
)

// StatsService reports this node's own bucket operation counters and
// storage usage. There is no wire command for stats (spec §4.5's command
// table has no Stats kind), so unlike the other three services this one
// never routes anywhere: it reads the local registry directly, the same
// way a node's own HTTP handler would expose its own /stats endpoint.
type StatsService interface {
	BucketStats(bucket string) (storage.BucketStats, error)
	AllBucketStats() map[string]storage.BucketStats
}

// BucketStore is the subset of *storage.Registry a StatsService needs.
type BucketStore interface {
	Bucket(name string) (*storage.Bucket, bool)
	Buckets() []string
}

// DefaultStatsService implements StatsService over a local BucketStore.
type DefaultStatsService struct {
	Buckets BucketStore
}

func (s DefaultStatsService) BucketStats(bucket string) (storage.BucketStats, error) {
	b, ok := s.Buckets.Bucket(bucket)
	if !ok {
		return storage.BucketStats{}, errs.NewProcessing(fmt.Sprintf("bucket %q not found", bucket), nil)
	}
	return b.Stats(), nil
}

func (s DefaultStatsService) AllBucketStats() map[string]storage.BucketStats {
	names := s.Buckets.Buckets()
	out := make(map[string]storage.BucketStats, len(names))
	for _, name := range names {
		if b, ok := s.Buckets.Bucket(name); ok {
			out[name] = b.Stats()
		}
	}
	return out
}
