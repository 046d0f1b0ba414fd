// Package index provides the similarity-index boundary used by partitions.
// The on-disk artifact is produced by the ingestion pipeline; this package
// only loads and queries it.
package index

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/farmsense/poultryqa/internal/domain"
)

// Index is the narrow contract a partition needs from its similarity index.
// Row i of the index corresponds to documents[i] of the owning partition.
type Index interface {
	Dim() int
	Len() int
	// Search returns the k nearest rows as (distances, row indices),
	// distances ascending.
	Search(query []float32, k int) ([]float32, []int, error)
}

// Flat is an exhaustive-scan index over squared L2 distance.
type Flat struct {
	dim  int
	vecs [][]float32
}

var _ Index = (*Flat)(nil)

// NewFlat builds an in-memory flat index. All vectors must share one
// dimensionality.
func NewFlat(vectors [][]float32) (*Flat, error) {
	if len(vectors) == 0 {
		return &Flat{}, nil
	}
	dim := len(vectors[0])
	for i := range vectors {
		if len(vectors[i]) != dim {
			return nil, fmt.Errorf("inconsistent vector dims %d vs %d: %w",
				len(vectors[i]), dim, domain.ErrDimensionMismatch)
		}
	}
	vecs := make([][]float32, len(vectors))
	for i := range vectors {
		vecs[i] = append([]float32(nil), vectors[i]...)
	}
	return &Flat{dim: dim, vecs: vecs}, nil
}

// Dim returns the vector dimensionality (0 when empty).
func (f *Flat) Dim() int { return f.dim }

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return len(f.vecs) }

// Search scans all rows and returns the k nearest by squared L2 distance.
func (f *Flat) Search(query []float32, k int) ([]float32, []int, error) {
	if len(f.vecs) == 0 {
		return nil, nil, nil
	}
	if len(query) != f.dim {
		return nil, nil, fmt.Errorf("query dim %d != index dim %d: %w",
			len(query), f.dim, domain.ErrDimensionMismatch)
	}

	type scored struct {
		idx  int
		dist float32
	}
	scoreds := make([]scored, len(f.vecs))
	for i, v := range f.vecs {
		scoreds[i] = scored{idx: i, dist: sqL2(query, v)}
	}
	sort.SliceStable(scoreds, func(a, b int) bool { return scoreds[a].dist < scoreds[b].dist })

	if k <= 0 || k > len(scoreds) {
		k = len(scoreds)
	}
	dists := make([]float32, k)
	idxs := make([]int, k)
	for i := 0; i < k; i++ {
		dists[i] = scoreds[i].dist
		idxs[i] = scoreds[i].idx
	}
	return dists, idxs, nil
}

func sqL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// File layout: dim(uint32), n(uint32), then n*dim float32, all little-endian.

// LoadFlat reads a flat index artifact from disk.
func LoadFlat(path string) (*Flat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	return decodeFlat(data)
}

func decodeFlat(data []byte) (*Flat, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("index header truncated (%d bytes): %w", len(data), domain.ErrIndexCorrupt)
	}
	dim := int(binary.LittleEndian.Uint32(data[0:4]))
	n := int(binary.LittleEndian.Uint32(data[4:8]))
	if dim == 0 || n == 0 {
		return &Flat{}, nil
	}
	want := 8 + 4*dim*n
	if len(data) != want {
		return nil, fmt.Errorf("index body %d bytes, want %d (dim=%d n=%d): %w",
			len(data), want, dim, n, domain.ErrIndexCorrupt)
	}
	vecs := make([][]float32, n)
	off := 8
	for i := 0; i < n; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		vecs[i] = vec
	}
	return &Flat{dim: dim, vecs: vecs}, nil
}

// EncodeFlat serializes the index for persistence. Used by tests and tooling;
// the production artifact comes from the ingester.
func (f *Flat) EncodeFlat() []byte {
	out := make([]byte, 8, 8+4*f.dim*len(f.vecs))
	binary.LittleEndian.PutUint32(out[0:4], uint32(f.dim))
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(f.vecs)))
	var buf [4]byte
	for _, vec := range f.vecs {
		for _, v := range vec {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
			out = append(out, buf[:]...)
		}
	}
	return out
}
