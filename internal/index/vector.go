package index

import (
	"fmt"
	"sort"

	"github.com/DreamCats/lexrag/internal/embedding"
)

// NoMatch marks a result slot that holds no vector.
const NoMatch = -1

// Hit is one slot returned by VectorIndex.Search.
type Hit struct {
	Position int
	Score    float32
}

// VectorIndex is an exact inner-product index over unit vectors.
// Positions follow insertion order.
type VectorIndex struct {
	dim     int
	vectors [][]float32
}

// NewVectorIndex creates an empty index for vectors of the given dimension
func NewVectorIndex(dim int) *VectorIndex {
	return &VectorIndex{dim: dim}
}

// Dim returns the vector dimension
func (v *VectorIndex) Dim() int { return v.dim }

// Len returns the number of stored vectors
func (v *VectorIndex) Len() int { return len(v.vectors) }

// Add appends a vector. The caller is expected to have normalised it.
func (v *VectorIndex) Add(vec []float32) error {
	if len(vec) != v.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), v.dim)
	}
	v.vectors = append(v.vectors, vec)
	return nil
}

// Vectors returns the stored vectors in position order
func (v *VectorIndex) Vectors() [][]float32 {
	return v.vectors
}

// Search returns exactly k slots ordered by descending inner product with q.
// Equal scores keep the lower position first. Slots past the number of
// stored vectors carry Position NoMatch.
func (v *VectorIndex) Search(q []float32, k int) ([]Hit, error) {
	if len(q) != v.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(q), v.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	hits := make([]Hit, len(v.vectors))
	for i, vec := range v.vectors {
		hits[i] = Hit{Position: i, Score: embedding.Dot(q, vec)}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	for len(hits) < k {
		hits = append(hits, Hit{Position: NoMatch})
	}
	return hits, nil
}
