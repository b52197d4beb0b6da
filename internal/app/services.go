package app

import (
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/answer"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/extractor"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/parser"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/pipeline"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/vectorindex"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type Services struct {
	Embedder *vectorindex.CachingEmbedder
	Pipeline *pipeline.Service
}

func wireServices(log *logger.Logger, cfg Config, clients Clients) Services {
	log.Info("Wiring services...")
	timeout := cfg.CallTimeout()

	var cache vectorindex.VectorCache
	if clients.EmbedCache != nil {
		cache = clients.EmbedCache
	}
	embedder := vectorindex.NewCachingEmbedder(log, clients.OpenAI, cache, vectorindex.EmbedderConfig{
		Model:       cfg.OpenAI.EmbedModel,
		RPS:         cfg.EmbedRPS,
		CallTimeout: timeout,
	})

	var ocr reviewer.OCR
	if clients.Vision != nil {
		ocr = clients.Vision
	}
	ext := extractor.New(log,
		extractor.PDFTextSource{},
		extractor.PopplerTextSource{Tools: clients.PDFTools},
		clients.PDFTools,
		ocr,
		extractor.Config{
			DPI:         cfg.OCR.DPI,
			Language:    cfg.OCR.Language,
			OCREnabled:  cfg.OCR.Enabled && ocr != nil,
			CallTimeout: timeout,
			WorkDir:     cfg.UploadDir,
		},
	)

	prs := parser.New(log, clients.OpenAI, parser.Config{
		Topic:       cfg.DefaultTopic,
		AIThreshold: cfg.AIParseThreshold,
		AIModel:     cfg.AIParseModel,
		CallTimeout: timeout,
	})

	temperature := cfg.AnswerTemperature
	composer := answer.New(log, clients.OpenAI, answer.Config{
		Model:       cfg.OpenAI.Model,
		Temperature: &temperature,
		ExamName:    cfg.ExamName,
		CallTimeout: timeout,
	})

	svc := pipeline.New(log, pipeline.Deps{
		Extractor: ext,
		Parser:    prs,
		Embedder:  embedder,
		Composer:  composer,
		Loader:    vectorindex.NewLoader(),
	}, pipeline.Config{
		ChunksDir:       cfg.ChunksDir,
		IndexDir:        cfg.IndexDir,
		DefaultExamType: cfg.DefaultExamType,
		DefaultTopic:    cfg.DefaultTopic,
		TopK:            cfg.RetrievalTopK,
		MaxDistance:     cfg.RetrievalMaxDistance,
	})

	return Services{Embedder: embedder, Pipeline: svc}
}
