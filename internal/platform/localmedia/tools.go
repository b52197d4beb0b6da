package localmedia

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/reviewer-backend/internal/platform/ctxutil"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

// Tools wraps the poppler binaries used for PDF handling.
//
// REQUIRED BINARIES in the runtime image (poppler-utils):
// - pdfinfo for page counts
// - pdftotext for per-page text (secondary extraction)
// - pdftoppm for PDF -> page images (OCR path)
type Tools interface {
	AssertReady(ctx context.Context) error
	CountPDFPages(ctx context.Context, pdfPath string) (int, error)
	PageText(ctx context.Context, pdfPath string, page int) (string, error)
	RenderPDFToImages(ctx context.Context, pdfPath string, outDir string, opts PDFRenderOptions) ([]string, error)
}

type PDFRenderOptions struct {
	DPI       int
	Format    string // "png" or "jpeg"
	FirstPage int    // 1-based, 0 means default
	LastPage  int    // 1-based, 0 means default
}

// CommandRunner executes a binary and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", name, err)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return nil, fmt.Errorf("%s: %w; stderr=%s", name, err, s)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

type tools struct {
	log    *logger.Logger
	runner CommandRunner

	pdftoppmPath  string
	pdfinfoPath   string
	pdftotextPath string

	defaultTimeout time.Duration
}

type Option func(*tools)

func WithRunner(r CommandRunner) Option { return func(t *tools) { t.runner = r } }

func WithTimeout(d time.Duration) Option {
	return func(t *tools) {
		if d > 0 {
			t.defaultTimeout = d
		}
	}
}

func New(log *logger.Logger, opts ...Option) Tools {
	t := &tools{
		log:            log.With("service", "PDFTools"),
		runner:         execRunner{},
		pdftoppmPath:   "pdftoppm",
		pdfinfoPath:    "pdfinfo",
		pdftotextPath:  "pdftotext",
		defaultTimeout: 5 * time.Minute,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (m *tools) AssertReady(ctx context.Context) error {
	for _, bin := range []string{m.pdftoppmPath, m.pdfinfoPath, m.pdftotextPath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return nil
}

func (m *tools) CountPDFPages(ctx context.Context, pdfPath string) (int, error) {
	ctx = ctxutil.Default(ctx)
	if pdfPath == "" {
		return 0, fmt.Errorf("pdfPath required")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out, err := m.runner.Run(ctx, m.pdfinfoPath, pdfPath)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo failed: %w", err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil || n <= 0 {
			continue
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo output missing Pages field")
}

func (m *tools) PageText(ctx context.Context, pdfPath string, page int) (string, error) {
	ctx = ctxutil.Default(ctx)
	if pdfPath == "" {
		return "", fmt.Errorf("pdfPath required")
	}
	if page <= 0 {
		return "", fmt.Errorf("page must be >= 1")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	// "-" sends the text to stdout.
	out, err := m.runner.Run(ctx, m.pdftotextPath,
		"-enc", "UTF-8",
		"-q",
		"-layout",
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		pdfPath,
		"-",
	)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (m *tools) RenderPDFToImages(ctx context.Context, pdfPath string, outDir string, opts PDFRenderOptions) ([]string, error) {
	ctx = ctxutil.Default(ctx)
	if pdfPath == "" {
		return nil, fmt.Errorf("pdfPath required")
	}
	if outDir == "" {
		return nil, fmt.Errorf("outDir required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir outDir: %w", err)
	}

	dpi := opts.DPI
	if dpi <= 0 {
		dpi = 200
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "png"
	}
	if format != "png" && format != "jpeg" && format != "jpg" {
		return nil, fmt.Errorf("unsupported render format: %s", format)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	args := []string{"-r", strconv.Itoa(dpi)}
	if format == "png" {
		args = append(args, "-png")
	} else {
		args = append(args, "-jpeg")
	}
	if opts.FirstPage > 0 {
		args = append(args, "-f", strconv.Itoa(opts.FirstPage))
	}
	if opts.LastPage > 0 {
		args = append(args, "-l", strconv.Itoa(opts.LastPage))
	}
	args = append(args, pdfPath, filepath.Join(outDir, "page"))

	m.log.Debug("Rendering PDF pages", "dpi", dpi, "format", format)
	if _, err := m.runner.Run(ctx, m.pdftoppmPath, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w", err)
	}

	paths, err := globSorted(outDir, `^page-\d+\.(png|jpe?g)$`)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images produced by pdftoppm")
	}
	return paths, nil
}

var pageNumRe = regexp.MustCompile(`-(\d+)\.`)

// globSorted lists files in dir matching pattern, ordered by the page number
// pdftoppm embeds in the name (page-1, page-2, ..., page-10).
func globSorted(dir, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read render dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !re.MatchString(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Slice(out, func(i, j int) bool {
		return pageNum(out[i]) < pageNum(out[j])
	})
	return out, nil
}

func pageNum(path string) int {
	m := pageNumRe.FindStringSubmatch(filepath.Base(path))
	if len(m) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
