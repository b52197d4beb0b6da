package extractor

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// TextSource opens a PDF for direct (non-OCR) text extraction.
type TextSource interface {
	Name() string
	Open(ctx context.Context, path string) (TextDocument, error)
}

type TextDocument interface {
	NumPages() int
	// PageText returns the text of a 1-based page.
	PageText(ctx context.Context, page int) (string, error)
	Close() error
}

// PDFTextSource reads the PDF content streams in-process.
type PDFTextSource struct{}

func (PDFTextSource) Name() string { return "pdf" }

func (PDFTextSource) Open(_ context.Context, path string) (doc TextDocument, err error) {
	// The reader panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("pdf open: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdf open: %w", err)
	}
	return &pdfDocument{close: f.Close, r: r}, nil
}

type pdfDocument struct {
	close func() error
	r     *pdf.Reader
}

func (d *pdfDocument) NumPages() int { return d.r.NumPage() }

func (d *pdfDocument) PageText(_ context.Context, page int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf page %d: %v", page, r)
		}
	}()
	if page < 1 || page > d.r.NumPage() {
		return "", fmt.Errorf("pdf page %d out of range", page)
	}
	p := d.r.Page(page)
	if p.V.IsNull() {
		return "", fmt.Errorf("pdf page %d missing", page)
	}
	return p.GetPlainText(nil)
}

func (d *pdfDocument) Close() error { return d.close() }

// popplerTools is the part of localmedia.Tools the poppler source needs.
type popplerTools interface {
	CountPDFPages(ctx context.Context, pdfPath string) (int, error)
	PageText(ctx context.Context, pdfPath string, page int) (string, error)
}

// PopplerTextSource shells out to pdfinfo/pdftotext.
type PopplerTextSource struct {
	Tools popplerTools
}

func (PopplerTextSource) Name() string { return "pdftotext" }

func (s PopplerTextSource) Open(ctx context.Context, path string) (TextDocument, error) {
	if s.Tools == nil {
		return nil, fmt.Errorf("poppler tools not configured")
	}
	n, err := s.Tools.CountPDFPages(ctx, path)
	if err != nil {
		return nil, err
	}
	return &popplerDocument{tools: s.Tools, path: path, pages: n}, nil
}

type popplerDocument struct {
	tools popplerTools
	path  string
	pages int
}

func (d *popplerDocument) NumPages() int { return d.pages }

func (d *popplerDocument) PageText(ctx context.Context, page int) (string, error) {
	return d.tools.PageText(ctx, d.path, page)
}

func (d *popplerDocument) Close() error { return nil }
