package app

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/reviewer-backend/internal/platform/gcp"
	"github.com/yungbote/reviewer-backend/internal/platform/localmedia"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
	"github.com/yungbote/reviewer-backend/internal/platform/openai"
	"github.com/yungbote/reviewer-backend/internal/platform/rediscache"
)

type Clients struct {
	OpenAI     openai.Client
	Vision     gcp.Vision
	PDFTools   localmedia.Tools
	EmbedCache *rediscache.EmbeddingCache
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Openai
	oa, err := openai.NewClient(log, openai.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.Model,
		EmbedModel: cfg.OpenAI.EmbedModel,
		Timeout:    time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.OpenAI.MaxRetries,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	pdfTools := localmedia.New(log, localmedia.WithTimeout(cfg.CallTimeout()))

	// Gcp
	var vision gcp.Vision
	if cfg.OCR.Enabled {
		vision, err = gcp.NewVision(ctx, log, gcp.VisionConfig{
			Credentials: cfg.OCR.Credentials,
			Timeout:     cfg.CallTimeout(),
			MaxRetries:  cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init vision client: %w", err)
		}
	}

	// Redis
	var cache *rediscache.EmbeddingCache
	if cfg.Redis.Addr != "" {
		cache, err = rediscache.New(ctx, log, rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      time.Duration(cfg.Redis.TTLSeconds) * time.Second,
		})
		if err != nil {
			if vision != nil {
				_ = vision.Close()
			}
			return Clients{}, fmt.Errorf("init redis embedding cache: %w", err)
		}
	}

	return Clients{
		OpenAI:     oa,
		Vision:     vision,
		PDFTools:   pdfTools,
		EmbedCache: cache,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Vision != nil {
		_ = c.Vision.Close()
	}
	if c.EmbedCache != nil {
		_ = c.EmbedCache.Close()
	}
}
