package vectorindex

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer"
	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

// VectorCache is satisfied by rediscache.EmbeddingCache.
type VectorCache interface {
	Get(ctx context.Context, model, hash string) ([]float32, bool, error)
	Set(ctx context.Context, model, hash string, vec []float32) error
}

type EmbedderConfig struct {
	// Model names the cache namespace; it should match the service's model.
	Model string
	// RPS caps embedding calls per second; <= 0 means unlimited.
	RPS         float64
	CallTimeout time.Duration
}

// CachingEmbedder wraps the embedding service with a rate limiter, a
// per-call timeout and an optional content-hash cache. Failures surface as
// embedding_failed or service_timeout.
type CachingEmbedder struct {
	log     *logger.Logger
	inner   reviewer.Embedder
	cache   VectorCache
	limiter *rate.Limiter
	cfg     EmbedderConfig
}

func NewCachingEmbedder(log *logger.Logger, inner reviewer.Embedder, cache VectorCache, cfg EmbedderConfig) *CachingEmbedder {
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	return &CachingEmbedder{
		log:     log.With("service", "CachingEmbedder"),
		inner:   inner,
		cache:   cache,
		limiter: rate.NewLimiter(limit, 1),
		cfg:     cfg,
	}
}

func (e *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	hash := domain.ContentHash(text)
	if e.cache != nil {
		vec, ok, err := e.cache.Get(ctx, e.cfg.Model, hash)
		if err != nil {
			e.log.Warn("embedding cache read failed", "error", err)
		} else if ok {
			return vec, nil
		}
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, apierr.External(apierr.CodeEmbeddingFailed, err)
	}
	callCtx := ctx
	if e.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.CallTimeout)
		defer cancel()
	}
	vec, err := e.inner.Embed(callCtx, text)
	if err != nil {
		return nil, apierr.External(apierr.CodeEmbeddingFailed, err)
	}
	if len(vec) == 0 {
		return nil, apierr.Newf(apierr.CodeEmbeddingFailed, "embedding service returned an empty vector")
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, e.cfg.Model, hash, vec); err != nil {
			e.log.Warn("embedding cache write failed", "error", err)
		}
	}
	return vec, nil
}
