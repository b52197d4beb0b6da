package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"

	"github.com/yungbote/reviewer-backend/internal/platform/ctxutil"
	"github.com/yungbote/reviewer-backend/internal/platform/httpx"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

// Vision runs OCR over rendered page images.
type Vision interface {
	OCRImage(ctx context.Context, img []byte, language string) (string, error)
	Close() error
}

type VisionConfig struct {
	Credentials string
	Timeout     time.Duration
	MaxRetries  int
}

// annotator is the slice of the Vision client we call, split out for tests.
type annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

type visionService struct {
	log        *logger.Logger
	client     annotator
	closeFn    func() error
	timeout    time.Duration
	maxRetries int
}

func NewVision(ctx context.Context, log *logger.Logger, cfg VisionConfig) (Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	vClient, err := vision.NewImageAnnotatorClient(ctxutil.Default(ctx), ClientOptions(cfg.Credentials)...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return newVisionService(log, vClient, vClient.Close, cfg), nil
}

func newVisionService(log *logger.Logger, client annotator, closeFn func() error, cfg VisionConfig) *visionService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &visionService{
		log:        log.With("service", "gcp.Vision"),
		client:     client,
		closeFn:    closeFn,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
	}
}

func (s *visionService) Close() error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

func (s *visionService) OCRImage(ctx context.Context, img []byte, language string) (string, error) {
	if len(img) == 0 {
		return "", nil
	}
	ctx = ctxutil.Default(ctx)

	req := &visionpb.AnnotateImageRequest{
		Image:    &visionpb.Image{Content: img},
		Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
	}
	if lang := strings.TrimSpace(language); lang != "" {
		req.ImageContext = &visionpb.ImageContext{LanguageHints: []string{visionLanguage(lang)}}
	}
	batch := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{req}}

	var resp *visionpb.BatchAnnotateImagesResponse
	err := httpx.Retry(ctx, s.maxRetries, 750*time.Millisecond, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		r, err := s.client.BatchAnnotateImages(callCtx, batch)
		if err != nil {
			s.log.Warn("Vision annotate failed", "error", err)
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	if r0.FullTextAnnotation == nil {
		return "", nil
	}
	return r0.FullTextAnnotation.Text, nil
}

// visionLanguage maps tesseract-style codes onto the BCP-47 hints Vision
// expects. Unknown values pass through.
func visionLanguage(lang string) string {
	switch strings.ToLower(lang) {
	case "eng":
		return "en"
	case "fil", "tgl":
		return "fil"
	case "spa":
		return "es"
	default:
		return lang
	}
}
