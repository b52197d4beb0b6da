// Package parser turns page text into unsaved chunk drafts.
package parser

import (
	"context"
	"time"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type Config struct {
	// Topic is stamped on drafts that carry none; empty leaves it to the store.
	Topic       string
	AIThreshold int
	AIModel     string
	CallTimeout time.Duration
}

type Options struct {
	UseAI bool
}

type Parser struct {
	log        *logger.Logger
	structured []Strategy
	ai         Strategy
	fallback   Strategy
}

// New builds the default strategy chain. gen may be nil, which disables the
// AI-assisted step regardless of per-call options.
func New(log *logger.Logger, gen reviewer.Generator, cfg Config) *Parser {
	p := &Parser{
		log: log.With("service", "Parser"),
		structured: []Strategy{
			NumberedMCQ{Topic: cfg.Topic},
			InlineMCQ{Topic: cfg.Topic},
		},
		fallback: Knowledge{Topic: cfg.Topic},
	}
	if gen != nil {
		p.ai = NewAIAssisted(log, gen, cfg.AIModel, cfg.AIThreshold, cfg.CallTimeout, cfg.Topic)
	}
	return p
}

// strategies returns the chain for one call: structured strategies, then the
// AI step when requested, then the knowledge fallback.
func (p *Parser) strategies(opts Options) []Strategy {
	chain := append([]Strategy(nil), p.structured...)
	if opts.UseAI && p.ai != nil {
		chain = append(chain, p.ai)
	}
	return append(chain, p.fallback)
}

// ParsePage returns the drafts of the first strategy with a non-empty result.
// A page of only whitespace yields nothing.
func (p *Parser) ParsePage(ctx context.Context, text string, opts Options) []domain.Draft {
	for _, s := range p.strategies(opts) {
		drafts, ok := s.Parse(ctx, text)
		if ok && len(drafts) > 0 {
			p.log.Debug("page parsed", "strategy", s.Name(), "drafts", len(drafts))
			return drafts
		}
	}
	return nil
}

func (p *Parser) ParsePages(ctx context.Context, pages []string, opts Options) []domain.Draft {
	var out []domain.Draft
	for _, page := range pages {
		if ctx.Err() != nil {
			break
		}
		out = append(out, p.ParsePage(ctx, page, opts)...)
	}
	return out
}
