package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer"
	"github.com/yungbote/reviewer-backend/internal/platform/fsutil"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type KnowledgeSource interface {
	Knowledge(ctx context.Context) ([]domain.Chunk, error)
}

type Builder struct {
	log      *logger.Logger
	embedder reviewer.Embedder
}

func NewBuilder(log *logger.Logger, embedder reviewer.Embedder) *Builder {
	return &Builder{log: log.With("service", "IndexBuilder"), embedder: embedder}
}

// Rebuild embeds every knowledge chunk and replaces the index at path. With
// no knowledge chunks it returns (nil, nil) and leaves path untouched. Any
// embedding failure aborts before the file is written.
func (b *Builder) Rebuild(ctx context.Context, src KnowledgeSource, path string) (*Index, error) {
	unlock, err := fsutil.LockPath(path)
	if err != nil {
		return nil, err
	}
	defer unlock()

	chunks, err := src.Knowledge(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		b.log.Info("no knowledge chunks; index left as is", "path", path)
		return nil, nil
	}

	start := time.Now()
	ix := New(0)
	for i, c := range chunks {
		vec, err := b.embedder.Embed(ctx, c.Text())
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d/%d (%s): %w", i+1, len(chunks), c.ID, err)
		}
		if err := ix.Add(c.ID, vec); err != nil {
			return nil, err
		}
	}
	if err := ix.Save(path); err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}

	b.log.Info("index rebuilt",
		"path", path,
		"vectors", ix.Len(),
		"dim", ix.Dim(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ix, nil
}
