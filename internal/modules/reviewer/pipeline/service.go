// Package pipeline wires the reviewer components into the ingestion and
// query flows. The chunk store is the only state the two flows share.
package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/answer"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/chunkstore"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/extractor"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/parser"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/retrieval"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/vectorindex"
	"github.com/yungbote/reviewer-backend/internal/observability"
	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type Extractor interface {
	Extract(ctx context.Context, pdfPath string) (*extractor.Result, error)
}

type Config struct {
	ChunksDir       string
	IndexDir        string
	DefaultExamType string
	DefaultTopic    string
	TopK            int
	MaxDistance     float64
}

type Deps struct {
	Extractor Extractor
	Parser    *parser.Parser
	// Embedder is used for both index builds and queries; wrap it in a
	// vectorindex.CachingEmbedder for rate limiting and timeouts.
	Embedder reviewer.Embedder
	Composer *answer.Composer
	Loader   *vectorindex.Loader
}

type Service struct {
	log       *logger.Logger
	extractor Extractor
	parser    *parser.Parser
	embedder  reviewer.Embedder
	builder   *vectorindex.Builder
	loader    *vectorindex.Loader
	retriever *retrieval.Retriever
	composer  *answer.Composer
	cfg       Config
}

func New(log *logger.Logger, deps Deps, cfg Config) *Service {
	if cfg.DefaultExamType == "" {
		cfg.DefaultExamType = domain.DefaultExamType
	}
	if cfg.DefaultTopic == "" {
		cfg.DefaultTopic = domain.DefaultTopic
	}
	loader := deps.Loader
	if loader == nil {
		loader = vectorindex.NewLoader()
	}
	return &Service{
		log:       log.With("service", "ReviewerPipeline"),
		extractor: deps.Extractor,
		parser:    deps.Parser,
		embedder:  deps.Embedder,
		builder:   vectorindex.NewBuilder(log, deps.Embedder),
		loader:    loader,
		retriever: retrieval.New(log, loader),
		composer:  deps.Composer,
		cfg:       cfg,
	}
}

// ExamType normalizes a caller-supplied exam type, applying the default.
func (s *Service) ExamType(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		raw = s.cfg.DefaultExamType
	}
	exam, ok := domain.NormalizeExamType(raw)
	if !ok {
		return "", apierr.Newf(apierr.CodeInvalidInput, "invalid exam type %q", raw)
	}
	return exam, nil
}

func (s *Service) store(exam string) *chunkstore.Store {
	return chunkstore.New(s.log, s.cfg.ChunksDir, exam, s.cfg.DefaultTopic)
}

func (s *Service) indexPath(exam string) string {
	return vectorindex.FilePath(s.cfg.IndexDir, exam)
}

type IngestRequest struct {
	PDFPath  string
	ExamType string
	UseAI    bool
}

type IngestResult struct {
	ExamType     string         `json:"exam_type"`
	ParsedCount  int            `json:"parsed_count"`
	AddedCount   int            `json:"added_count"`
	Mode         extractor.Mode `json:"mode"`
	IndexRebuilt bool           `json:"index_rebuilt"`
	Message      string         `json:"message"`
}

// Ingest extracts, parses and stores one PDF, then rebuilds the exam's index
// when new knowledge chunks were added. A failed rebuild does not undo the
// append; it is logged and noted in the result message.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (res *IngestResult, err error) {
	start := time.Now()
	exam, err := s.ExamType(req.ExamType)
	if err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "reviewer.ingest",
		attribute.String("exam_type", exam),
		attribute.Bool("use_ai", req.UseAI),
	)
	defer func() {
		status, mode := "succeeded", ""
		if err != nil {
			status = "failed"
		}
		if res != nil {
			mode = string(res.Mode)
		}
		observability.Current().ObserveIngest(exam, mode, status, time.Since(start))
		observability.EndSpan(span, err)
	}()

	extracted, err := s.extractor.Extract(ctx, req.PDFPath)
	if err != nil {
		return nil, err
	}

	drafts := s.parser.ParsePages(ctx, extracted.Pages, parser.Options{UseAI: req.UseAI})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	added, err := s.store(exam).Append(ctx, drafts)
	if err != nil {
		return nil, err
	}

	res = &IngestResult{
		ExamType:    exam,
		ParsedCount: len(drafts),
		AddedCount:  len(added),
		Mode:        extracted.Mode,
	}
	res.Message = fmt.Sprintf("Processed upload. chunks parsed: %d, added: %d", res.ParsedCount, res.AddedCount)

	addedByKind := map[domain.Kind]int{}
	for _, c := range added {
		addedByKind[c.Kind]++
	}
	for kind, n := range addedByKind {
		observability.Current().AddChunks(exam, string(kind), n)
	}

	if addedByKind[domain.KindKnowledge] > 0 {
		if _, rerr := s.Reindex(ctx, exam); rerr != nil {
			s.log.Error("index rebuild after ingest failed", "exam_type", exam, "error", rerr)
			res.Message += "; index rebuild failed: " + rerr.Error()
		} else {
			res.IndexRebuilt = true
		}
	}

	s.log.Info("document ingested",
		"exam_type", exam,
		"mode", string(res.Mode),
		"pages", len(extracted.Pages),
		"parsed", res.ParsedCount,
		"added", res.AddedCount,
		"index_rebuilt", res.IndexRebuilt,
	)
	return res, nil
}

// Reindex rebuilds the exam's index from its knowledge chunks and returns
// the number of vectors written (0 when there is nothing to index).
func (s *Service) Reindex(ctx context.Context, rawExam string) (n int, err error) {
	exam, err := s.ExamType(rawExam)
	if err != nil {
		return 0, err
	}
	ctx, span := observability.StartSpan(ctx, "reviewer.reindex", attribute.String("exam_type", exam))
	defer func() {
		status := "succeeded"
		if err != nil {
			status = "failed"
		}
		observability.Current().ObserveIndexRebuild(exam, status, n)
		observability.EndSpan(span, err)
	}()

	path := s.indexPath(exam)
	ix, err := s.builder.Rebuild(ctx, s.store(exam), path)
	s.loader.Invalidate(path)
	if err != nil {
		return 0, err
	}
	if ix == nil {
		return 0, nil
	}
	return ix.Len(), nil
}

// Query answers a free-text question from the exam's knowledge chunks,
// falling back to an ungrounded answer when nothing is close enough.
func (s *Service) Query(ctx context.Context, question, rawExam string) (ans domain.Answer, err error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, apierr.Newf(apierr.CodeInvalidInput, "question is required")
	}
	exam, err := s.ExamType(rawExam)
	if err != nil {
		return domain.Answer{}, err
	}
	ctx, span := observability.StartSpan(ctx, "reviewer.query", attribute.String("exam_type", exam))
	defer func() { observability.EndSpan(span, err) }()

	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return domain.Answer{}, apierr.External(apierr.CodeEmbeddingFailed, err)
	}
	chunks, err := s.retriever.Search(ctx, s.indexPath(exam), s.store(exam), vec, s.cfg.TopK, s.cfg.MaxDistance)
	if err != nil {
		return domain.Answer{}, err
	}
	span.SetAttributes(attribute.Int("context_chunks", len(chunks)))

	ans, err = s.composer.Compose(ctx, question, chunks)
	if err != nil {
		return domain.Answer{}, err
	}
	observability.Current().IncAnswer(string(ans.Source))
	return ans, nil
}

// RandomMock picks one stored mock question uniformly at random.
func (s *Service) RandomMock(ctx context.Context, rawExam string) (domain.Chunk, error) {
	exam, err := s.ExamType(rawExam)
	if err != nil {
		return domain.Chunk{}, err
	}
	mocks, err := s.store(exam).Mocks(ctx)
	if err != nil {
		return domain.Chunk{}, err
	}
	if len(mocks) == 0 {
		return domain.Chunk{}, apierr.Newf(apierr.CodeNotFound, "no mock questions available for %s", exam)
	}
	return mocks[rand.IntN(len(mocks))], nil
}
