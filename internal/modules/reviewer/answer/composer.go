// Package answer builds the final reply from retrieved context, or a
// clearly-marked general answer when nothing matched.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer"
	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

const (
	DefaultTemperature = 0.4
	DefaultExamName    = "Medical Technologist Licensure Examination"
)

type Config struct {
	Model string
	// Temperature nil means DefaultTemperature; zero is sent as zero.
	Temperature *float64
	// ExamName is how prompts refer to the exam being reviewed.
	ExamName    string
	CallTimeout time.Duration
}

type Composer struct {
	log         *logger.Logger
	gen         reviewer.Generator
	cfg         Config
	temperature float64
}

func New(log *logger.Logger, gen reviewer.Generator, cfg Config) *Composer {
	temp := DefaultTemperature
	if cfg.Temperature != nil {
		temp = *cfg.Temperature
	}
	if strings.TrimSpace(cfg.ExamName) == "" {
		cfg.ExamName = DefaultExamName
	}
	return &Composer{log: log.With("service", "AnswerComposer"), gen: gen, cfg: cfg, temperature: temp}
}

func (c *Composer) Compose(ctx context.Context, query string, chunks []domain.Chunk) (domain.Answer, error) {
	var (
		prompt string
		source domain.AnswerSource
	)
	if len(chunks) > 0 {
		prompt = c.groundedPrompt(query, chunks)
		source = domain.SourceGrounded
	} else {
		prompt = c.fallbackPrompt(query)
		source = domain.SourceFallback
	}

	callCtx := ctx
	if c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
	}
	text, err := c.gen.Complete(callCtx, prompt, domain.GenerateOptions{
		Model:       c.cfg.Model,
		Temperature: c.temperature,
	})
	if err != nil {
		return domain.Answer{}, apierr.External(apierr.CodeGenerationFailed, fmt.Errorf("generate answer: %w", err))
	}

	c.log.Debug("answer composed", "source", string(source), "context_chunks", len(chunks))
	out := domain.Answer{Text: strings.TrimSpace(text), Source: source}
	if source == domain.SourceGrounded {
		out.Context = chunks
	}
	return out, nil
}

func (c *Composer) groundedPrompt(query string, chunks []domain.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		parts = append(parts, ch.Text())
	}
	return fmt.Sprintf(`You are an expert reviewer assistant for the %s. Answer the question using only the context below. If the context does not contain the answer, say so.

Context:
%s

Question:
%s`, c.cfg.ExamName, strings.Join(parts, "\n"), query)
}

func (c *Composer) fallbackPrompt(query string) string {
	return fmt.Sprintf(`The user asked: %q

No matching material was found in the reviewer documents for this question. Give a general, best-effort explanation that would still help someone preparing for the %s, and make clear it is not drawn from the reviewer materials.`, query, c.cfg.ExamName)
}
