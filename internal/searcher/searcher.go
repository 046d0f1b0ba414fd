// Package searcher runs k-nearest-neighbor queries against loaded partitions,
// applying the vector normalization each embedding method expects.
package searcher

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/farmsense/poultryqa/internal/domain"
	"github.com/farmsense/poultryqa/internal/logger"
	"github.com/farmsense/poultryqa/internal/partition"
)

// PartitionSource reads loaded partition snapshots.
type PartitionSource interface {
	Get(id string) (*partition.Partition, bool)
}

// Searcher executes similarity queries against a partition's index.
type Searcher struct {
	parts PartitionSource
}

// New creates a searcher over the given partition source.
func New(parts PartitionSource) *Searcher {
	return &Searcher{parts: parts}
}

// Search returns the k nearest documents of a partition as (distances, row
// indices). The query vector is L2-normalized for every method except the
// lexical fallback, whose vectors are not meant to lie on the unit sphere.
// All failures return (nil, nil, false); nothing propagates to the caller.
func (s *Searcher) Search(ctx context.Context, partitionID string, vec []float32, k int) ([]float32, []int, bool) {
	log := logger.FromContext(ctx).With(zap.String("partition", partitionID))

	p, ok := s.parts.Get(partitionID)
	if !ok {
		log.Warn("Search against unloaded partition")
		return nil, nil, false
	}
	if len(vec) == 0 {
		return nil, nil, false
	}

	query := vec
	if p.Method != domain.MethodLexical {
		query = normalized(vec)
	}

	dists, idxs, err := p.Index.Search(query, k)
	if err != nil {
		log.Warn("Index search failed", zap.Error(err))
		return nil, nil, false
	}
	if len(idxs) == 0 {
		return nil, nil, false
	}
	return dists, idxs, true
}

// normalized returns an L2-normalized copy, leaving the input untouched.
func normalized(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
