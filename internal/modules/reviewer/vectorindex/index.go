// Package vectorindex is an exact (flat) squared-L2 nearest-neighbour index
// over knowledge chunk embeddings, with a small binary file format.
package vectorindex

import (
	"fmt"
	"math"
	"sort"

	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
)

// NoLabel marks a result slot with no neighbour.
const NoLabel = -1

type Index struct {
	dim     int
	ids     []string
	vectors []float32 // row-major, len(ids)*dim
}

func New(dim int) *Index {
	return &Index{dim: dim}
}

func (ix *Index) Dim() int { return ix.dim }
func (ix *Index) Len() int { return len(ix.ids) }

// ID returns the chunk id stored at label.
func (ix *Index) ID(label int) (string, bool) {
	if label < 0 || label >= len(ix.ids) {
		return "", false
	}
	return ix.ids[label], true
}

func (ix *Index) Add(id string, vec []float32) error {
	if ix.dim == 0 {
		ix.dim = len(vec)
	}
	if len(vec) != ix.dim || ix.dim == 0 {
		return apierr.Newf(apierr.CodeIndexDimensionMismatch, "vector for %s has dim %d, index dim %d", id, len(vec), ix.dim)
	}
	ix.ids = append(ix.ids, id)
	ix.vectors = append(ix.vectors, vec...)
	return nil
}

type Hit struct {
	Label int
	ID    string
	// Distance is the squared Euclidean distance to the query.
	Distance float32
}

// Search returns exactly k hits ordered nearest first. When the index holds
// fewer than k vectors the tail is padded with Label NoLabel and +Inf
// distance.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, apierr.Newf(apierr.CodeIndexDimensionMismatch, "query dim %d, index dim %d", len(query), ix.dim)
	}

	hits := make([]Hit, 0, len(ix.ids))
	for i := range ix.ids {
		row := ix.vectors[i*ix.dim : (i+1)*ix.dim]
		hits = append(hits, Hit{Label: i, ID: ix.ids[i], Distance: squaredL2(query, row)})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })

	if len(hits) > k {
		hits = hits[:k]
	}
	for len(hits) < k {
		hits = append(hits, Hit{Label: NoLabel, Distance: float32(math.Inf(1))})
	}
	return hits, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func (ix *Index) String() string {
	return fmt.Sprintf("vectorindex(dim=%d, n=%d)", ix.dim, len(ix.ids))
}
