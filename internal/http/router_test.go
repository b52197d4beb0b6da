package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	stdhttp "net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/reviewer-backend/internal/domain"
	httpH "github.com/yungbote/reviewer-backend/internal/http/handlers"
	httpMW "github.com/yungbote/reviewer-backend/internal/http/middleware"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/pipeline"
	"github.com/yungbote/reviewer-backend/internal/observability"
	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
	"github.com/yungbote/reviewer-backend/internal/platform/auth"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type fakeReviewer struct {
	ingestReq pipeline.IngestRequest
	stagedPDF []byte
	mocks     []domain.Chunk
}

func (f *fakeReviewer) Ingest(_ context.Context, req pipeline.IngestRequest) (*pipeline.IngestResult, error) {
	f.ingestReq = req
	f.stagedPDF, _ = os.ReadFile(req.PDFPath)
	return &pipeline.IngestResult{ParsedCount: 3, AddedCount: 2, Mode: "text", Message: "Processed upload. chunks parsed: 3, added: 2"}, nil
}

func (f *fakeReviewer) Query(_ context.Context, question, _ string) (domain.Answer, error) {
	return domain.Answer{Text: "answer to " + question, Source: domain.SourceFallback}, nil
}

func (f *fakeReviewer) RandomMock(_ context.Context, _ string) (domain.Chunk, error) {
	if len(f.mocks) == 0 {
		return domain.Chunk{}, apierr.Newf(apierr.CodeNotFound, "no mock questions available")
	}
	return f.mocks[0], nil
}

type testServer struct {
	engine *gin.Engine
	fake   *fakeReviewer
	admin  string
	reader string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	authn, err := auth.NewJWTAuthenticator(log, "router-secret")
	require.NoError(t, err)
	admin, err := authn.Issue("alice", []string{"admin"}, time.Hour)
	require.NoError(t, err)
	reader, err := authn.Issue("bob", nil, time.Hour)
	require.NoError(t, err)

	fake := &fakeReviewer{}
	engine := NewRouter(RouterConfig{
		Log:             log,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, authn),
		Metrics:         observability.NewMetrics(),
		HealthHandler:   httpH.NewHealthHandler(),
		UploadHandler:   httpH.NewUploadHandler(log, fake, t.TempDir(), 0),
		ReviewerHandler: httpH.NewReviewerHandler(log, fake),
	})
	return &testServer{engine: engine, fake: fake, admin: admin, reader: reader}
}

func (s *testServer) do(req *stdhttp.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func multipartPDF(t *testing.T, filename string, body []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealthcheck(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(httptest.NewRequest(stdhttp.MethodGet, "/healthcheck", nil), "")
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestUploadStagesPDFAndReportsCounts(t *testing.T) {
	s := newTestServer(t)
	body, ctype := multipartPDF(t, "Reviewer.PDF", []byte("%PDF-1.4 content"))
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/upload/mtle?use_ai_fallback=false", body)
	req.Header.Set("Content-Type", ctype)

	rec := s.do(req, s.reader)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(3), got["parsed_count"])
	assert.Equal(t, float64(2), got["added_count"])
	assert.Equal(t, "Processed upload. chunks parsed: 3, added: 2", got["message"])

	assert.Equal(t, "mtle", s.fake.ingestReq.ExamType)
	assert.False(t, s.fake.ingestReq.UseAI)
	assert.Equal(t, "%PDF-1.4 content", string(s.fake.stagedPDF))
	_, err := os.Stat(s.fake.ingestReq.PDFPath)
	assert.True(t, os.IsNotExist(err), "staged upload should be removed")
}

func TestUploadRejectsNonPDF(t *testing.T) {
	s := newTestServer(t)
	body, ctype := multipartPDF(t, "notes.docx", []byte("x"))
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/upload/nle", body)
	req.Header.Set("Content-Type", ctype)

	rec := s.do(req, s.admin)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"invalid_input"`)
}

func TestUploadRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	body, ctype := multipartPDF(t, "a.pdf", []byte("x"))
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/upload/nle", body)
	req.Header.Set("Content-Type", ctype)
	assert.Equal(t, stdhttp.StatusUnauthorized, s.do(req, "").Code)
}

func TestAskRequiresAdminScope(t *testing.T) {
	s := newTestServer(t)
	newReq := func() *stdhttp.Request {
		req := httptest.NewRequest(stdhttp.MethodPost, "/api/reviewer/ask", bytes.NewBufferString(`{"question":"What is ESR?"}`))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	assert.Equal(t, stdhttp.StatusForbidden, s.do(newReq(), s.reader).Code)

	rec := s.do(newReq(), s.admin)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "answer to What is ESR?", got["answer"])
	assert.Equal(t, "fallback", got["source"])
	assert.Nil(t, got["context"])
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/reviewer/ask", bytes.NewBufferString(`{"question":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, stdhttp.StatusBadRequest, s.do(req, s.admin).Code)
}

func TestMock(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(httptest.NewRequest(stdhttp.MethodGet, "/api/reviewer/mock?type=nle", nil), s.admin)
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_found"`)

	ans := "B"
	s.fake.mocks = []domain.Chunk{{ID: "NLE-mock-1", Kind: domain.KindMock, Question: "Sky?", Options: []string{"Red", "Blue"}, Answer: &ans}}
	rec = s.do(httptest.NewRequest(stdhttp.MethodGet, "/api/reviewer/mock?type=nle", nil), s.admin)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"mock"`)
	assert.Contains(t, rec.Body.String(), `"answer":"B"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(httptest.NewRequest(stdhttp.MethodGet, "/healthcheck", nil), "")
	rec := s.do(httptest.NewRequest(stdhttp.MethodGet, "/metrics", nil), "")
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `reviewer_api_requests_total{method="GET",route="/healthcheck",status="200"} 1`)
}
