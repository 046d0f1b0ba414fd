package retrieval

import (
	"context"

	"github.com/farmsense/poultryqa/internal/domain"
	"github.com/farmsense/poultryqa/internal/partition"
	"github.com/farmsense/poultryqa/internal/ranker"
)

// Classifier proposes a domain label with a confidence in [0,1].
type Classifier interface {
	Classify(query string) (string, float64)
}

// PartitionStore loads and serves partition snapshots.
type PartitionStore interface {
	EnsureLoaded(ctx context.Context, id string) bool
	Get(id string) (*partition.Partition, bool)
	IDs() []string
	Generic() string
}

// Encoder turns the query into a vector for a partition's method, or nil.
type Encoder interface {
	Encode(ctx context.Context, query string, method domain.Method, dims int) []float32
}

// Searcher runs a KNN query against a loaded partition.
type Searcher interface {
	Search(ctx context.Context, partitionID string, vec []float32, k int) ([]float32, []int, bool)
}

// Ranker re-scores and reorders retrieval candidates.
type Ranker interface {
	Rank(query string, candidates []ranker.Candidate) []domain.RankedResult
}

// Synthesizer formats the final answer from ranked results.
type Synthesizer interface {
	Synthesize(query string, results []domain.RankedResult) string
}
