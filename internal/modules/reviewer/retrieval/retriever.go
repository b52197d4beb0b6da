// Package retrieval finds the knowledge chunks nearest to a query vector.
package retrieval

import (
	"context"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/vectorindex"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

const (
	DefaultTopK        = 3
	DefaultMaxDistance = 0.75
)

// IndexSource returns the index for an exam, or nil when none was built.
type IndexSource interface {
	Get(path string) (*vectorindex.Index, error)
}

type ChunkSource interface {
	ByID(ctx context.Context) (map[string]domain.Chunk, error)
}

type Retriever struct {
	log   *logger.Logger
	index IndexSource
}

func New(log *logger.Logger, index IndexSource) *Retriever {
	return &Retriever{log: log.With("service", "Retriever"), index: index}
}

// Search returns up to topK chunks whose squared-L2 distance to vec is below
// maxDistance, nearest first. A missing index yields an empty result. Hits
// whose id is no longer in the store are dropped.
func (r *Retriever) Search(ctx context.Context, indexPath string, chunks ChunkSource, vec []float32, topK int, maxDistance float64) ([]domain.Chunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}

	ix, err := r.index.Get(indexPath)
	if err != nil {
		return nil, err
	}
	if ix == nil || ix.Len() == 0 {
		r.log.Debug("no index available", "path", indexPath)
		return nil, nil
	}

	hits, err := ix.Search(vec, topK)
	if err != nil {
		return nil, err
	}
	byID, err := chunks.ByID(ctx)
	if err != nil {
		return nil, err
	}

	var out []domain.Chunk
	for _, h := range hits {
		if h.Label == vectorindex.NoLabel || float64(h.Distance) >= maxDistance {
			continue
		}
		c, ok := byID[h.ID]
		if !ok {
			r.log.Warn("index references unknown chunk", "id", h.ID)
			continue
		}
		out = append(out, c)
	}
	r.log.Debug("retrieval done", "candidates", len(hits), "kept", len(out))
	return out, nil
}
