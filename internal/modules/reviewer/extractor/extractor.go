// Package extractor turns a PDF into per-page plain text, choosing between
// embedded text and OCR from a sample of the leading pages.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yungbote/reviewer-backend/internal/modules/reviewer"
	"github.com/yungbote/reviewer-backend/internal/observability"
	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
	"github.com/yungbote/reviewer-backend/internal/platform/localmedia"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type Mode string

const (
	ModeText Mode = "text"
	ModeOCR  Mode = "ocr"
)

const (
	DefaultSamplePages = 6
	DefaultMinTextLen  = 30
	DefaultDPI         = 200
	DefaultLanguage    = "eng"
)

// Renderer rasterizes PDF pages into image files for OCR.
type Renderer interface {
	RenderPDFToImages(ctx context.Context, pdfPath string, outDir string, opts localmedia.PDFRenderOptions) ([]string, error)
}

type Config struct {
	SamplePages int
	// MinTextLen is the number of characters a sampled page must exceed to
	// count as text-bearing.
	MinTextLen  int
	DPI         int
	Language    string
	OCREnabled  bool
	CallTimeout time.Duration
	// WorkDir holds rendered page images; empty means os.TempDir.
	WorkDir string
}

func (c Config) withDefaults() Config {
	if c.SamplePages <= 0 {
		c.SamplePages = DefaultSamplePages
	}
	if c.MinTextLen <= 0 {
		c.MinTextLen = DefaultMinTextLen
	}
	if c.DPI <= 0 {
		c.DPI = DefaultDPI
	}
	if strings.TrimSpace(c.Language) == "" {
		c.Language = DefaultLanguage
	}
	return c
}

type Result struct {
	Mode         Mode
	Pages        []string
	PageCount    int
	SampledPages int
	TextPages    int
}

type Extractor struct {
	log       *logger.Logger
	primary   TextSource
	secondary TextSource
	renderer  Renderer
	ocr       reviewer.OCR
	cfg       Config
}

// New builds an extractor. secondary, renderer and ocr may be nil; without
// renderer and ocr a scanned document fails with extraction_failed.
func New(log *logger.Logger, primary, secondary TextSource, renderer Renderer, ocr reviewer.OCR, cfg Config) *Extractor {
	return &Extractor{
		log:       log.With("service", "Extractor"),
		primary:   primary,
		secondary: secondary,
		renderer:  renderer,
		ocr:       ocr,
		cfg:       cfg.withDefaults(),
	}
}

func (e *Extractor) Extract(ctx context.Context, pdfPath string) (*Result, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, apierr.Wrap(apierr.CodeExtractionFailed, fmt.Errorf("open pdf: %w", err))
	}

	doc := &pageReader{ctx: ctx, log: e.log, path: pdfPath, primary: e.primary, secondary: e.secondary}
	defer doc.close()

	n, err := doc.numPages()
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeExtractionFailed, err)
	}
	if n <= 0 {
		return nil, apierr.Newf(apierr.CodeExtractionFailed, "pdf has no pages")
	}

	sampled := min(n, e.cfg.SamplePages)
	direct := make(map[int]string, sampled)
	textPages := 0
	for page := 1; page <= sampled; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txt := doc.pageText(page)
		direct[page] = txt
		if len(strings.TrimSpace(txt)) > e.cfg.MinTextLen {
			textPages++
		}
	}

	res := &Result{PageCount: n, SampledPages: sampled, TextPages: textPages}
	if textPages >= max(1, sampled/2) {
		res.Mode = ModeText
		for page := 1; page <= n; page++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			txt, ok := direct[page]
			if !ok {
				txt = doc.pageText(page)
			}
			if norm := NormalizeWhitespace(txt); norm != "" {
				res.Pages = append(res.Pages, norm)
			}
		}
	} else {
		doc.close()
		res.Mode = ModeOCR
		pages, err := e.ocrPages(ctx, pdfPath)
		if err != nil {
			return nil, err
		}
		res.Pages = pages
	}

	e.log.Info("pdf extracted",
		"path", pdfPath,
		"mode", string(res.Mode),
		"pages", n,
		"sampled", sampled,
		"text_pages", textPages,
		"kept_pages", len(res.Pages),
	)
	return res, nil
}

func (e *Extractor) ocrPages(ctx context.Context, pdfPath string) ([]string, error) {
	if !e.cfg.OCREnabled || e.renderer == nil || e.ocr == nil {
		return nil, apierr.Newf(apierr.CodeExtractionFailed, "document has no embedded text and OCR is not configured")
	}

	workDir, err := os.MkdirTemp(e.cfg.WorkDir, "reviewer_ocr_*")
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeOCRFailed, fmt.Errorf("ocr workdir: %w", err))
	}
	defer os.RemoveAll(workDir)

	images, err := e.renderer.RenderPDFToImages(ctx, pdfPath, workDir, localmedia.PDFRenderOptions{DPI: e.cfg.DPI, Format: "png"})
	if err != nil {
		return nil, apierr.External(apierr.CodeOCRFailed, fmt.Errorf("render pages: %w", err))
	}
	if len(images) == 0 {
		return nil, apierr.Newf(apierr.CodeOCRFailed, "render produced no page images")
	}

	var pages []string
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(img)
		if err != nil {
			return nil, apierr.Wrap(apierr.CodeOCRFailed, fmt.Errorf("read page image %d: %w", i+1, err))
		}
		txt, err := e.recognize(ctx, raw)
		if err != nil {
			return nil, apierr.External(apierr.CodeOCRFailed, fmt.Errorf("ocr page %d: %w", i+1, err))
		}
		if norm := NormalizeWhitespace(txt); norm != "" {
			pages = append(pages, norm)
		}
	}
	return pages, nil
}

func (e *Extractor) recognize(ctx context.Context, img []byte) (string, error) {
	callCtx := ctx
	if e.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.CallTimeout)
		defer cancel()
	}
	txt, err := e.ocr.OCRImage(callCtx, img, e.cfg.Language)
	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	observability.Current().IncOCRPage(status)
	return txt, err
}

// pageReader reads pages through the primary source and falls back to the
// secondary one, opened lazily, when the primary fails or returns no text.
type pageReader struct {
	ctx       context.Context
	log       *logger.Logger
	path      string
	primary   TextSource
	secondary TextSource

	pDoc, sDoc       TextDocument
	pOpened, sOpened bool
}

func (r *pageReader) primaryDoc() TextDocument {
	if !r.pOpened {
		r.pOpened = true
		if r.primary != nil {
			doc, err := r.primary.Open(r.ctx, r.path)
			if err != nil {
				r.log.Debug("primary text source unavailable", "source", r.primary.Name(), "error", err)
			} else {
				r.pDoc = doc
			}
		}
	}
	return r.pDoc
}

func (r *pageReader) secondaryDoc() TextDocument {
	if !r.sOpened {
		r.sOpened = true
		if r.secondary != nil {
			doc, err := r.secondary.Open(r.ctx, r.path)
			if err != nil {
				r.log.Debug("secondary text source unavailable", "source", r.secondary.Name(), "error", err)
			} else {
				r.sDoc = doc
			}
		}
	}
	return r.sDoc
}

func (r *pageReader) numPages() (int, error) {
	if d := r.primaryDoc(); d != nil {
		return d.NumPages(), nil
	}
	if d := r.secondaryDoc(); d != nil {
		return d.NumPages(), nil
	}
	return 0, errors.New("pdf could not be opened by any text source")
}

func (r *pageReader) pageText(page int) string {
	if d := r.primaryDoc(); d != nil {
		txt, err := d.PageText(r.ctx, page)
		if err == nil && strings.TrimSpace(txt) != "" {
			return txt
		}
		if err != nil {
			r.log.Debug("primary page extraction failed", "page", page, "error", err)
		}
	}
	if d := r.secondaryDoc(); d != nil {
		txt, err := d.PageText(r.ctx, page)
		if err == nil {
			return txt
		}
		r.log.Debug("secondary page extraction failed", "page", page, "error", err)
	}
	return ""
}

func (r *pageReader) close() {
	if r.pDoc != nil {
		_ = r.pDoc.Close()
		r.pDoc = nil
	}
	if r.sDoc != nil {
		_ = r.sDoc.Close()
		r.sDoc = nil
	}
}
