package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/reviewer-backend/internal/http/response"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/pipeline"
	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type Ingestor interface {
	Ingest(ctx context.Context, req pipeline.IngestRequest) (*pipeline.IngestResult, error)
}

type UploadHandler struct {
	log      *logger.Logger
	ingestor Ingestor
	tmpDir   string
	maxBytes int64
}

// NewUploadHandler stages uploads under tmpDir (os.TempDir when empty) and
// rejects bodies larger than maxBytes (<= 0 means 64 MiB).
func NewUploadHandler(log *logger.Logger, ingestor Ingestor, tmpDir string, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	return &UploadHandler{
		log:      log.With("handler", "UploadHandler"),
		ingestor: ingestor,
		tmpDir:   tmpDir,
		maxBytes: maxBytes,
	}
}

// Upload handles POST /api/upload/:exam with a multipart "file" field.
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, fmt.Errorf("multipart field \"file\" is required: %w", err))
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, fmt.Errorf("only PDF files are supported"))
		return
	}

	useAI := true
	if raw := strings.TrimSpace(c.Query("use_ai_fallback")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, fmt.Errorf("use_ai_fallback: %w", err))
			return
		}
		useAI = v
	}

	path, err := h.stage(fh)
	if err != nil {
		h.log.Error("staging upload failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, apierr.CodeInternal, fmt.Errorf("could not store upload"))
		return
	}
	defer os.Remove(path)

	res, err := h.ingestor.Ingest(c.Request.Context(), pipeline.IngestRequest{
		PDFPath:  path,
		ExamType: c.Param("exam"),
		UseAI:    useAI,
	})
	if err != nil {
		h.log.Warn("ingest failed", "filename", fh.Filename, "error", err)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

func (h *UploadHandler) stage(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp(h.tmpDir, "reviewer_upload_*.pdf")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}
