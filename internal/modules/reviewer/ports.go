// Package reviewer holds the service contracts shared by the ingestion and
// query pipelines. Concrete implementations live under internal/platform.
package reviewer

import (
	"context"

	"github.com/yungbote/reviewer-backend/internal/domain"
)

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator completes a prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error)
}

// OCR reads text out of a rendered page image.
type OCR interface {
	OCRImage(ctx context.Context, img []byte, language string) (string, error)
}
