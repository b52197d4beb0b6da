package observability

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/api/reviewer/ask", "200", 300*time.Millisecond)
	m.ObserveAPI("POST", "/api/reviewer/ask", "200", 2*time.Second)
	m.AddChunks("NLE", "mock", 3)
	m.ObserveIndexRebuild("NLE", "succeeded", 12)
	m.IncAnswer("fallback")

	var buf bytes.Buffer
	require.NoError(t, m.WritePrometheus(&buf))
	out := buf.String()

	assert.Contains(t, out, `reviewer_api_requests_total{method="POST",route="/api/reviewer/ask",status="200"} 2`)
	assert.Contains(t, out, `reviewer_api_request_duration_seconds_bucket{method="POST",route="/api/reviewer/ask",status="200",le="0.5"} 1`)
	assert.Contains(t, out, `reviewer_api_request_duration_seconds_bucket{method="POST",route="/api/reviewer/ask",status="200",le="+Inf"} 2`)
	assert.Contains(t, out, `reviewer_chunks_added_total{exam_type="NLE",kind="mock"} 3`)
	assert.Contains(t, out, `reviewer_index_vectors{exam_type="NLE"} 12`)
	assert.Contains(t, out, `reviewer_answers_total{source="fallback"} 1`)
	assert.Contains(t, out, "# TYPE reviewer_api_inflight_requests gauge\nreviewer_api_inflight_requests 0\n")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.IncAnswer("grounded")
	m.APIInflightInc()

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 503, rec.Code)
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{"x\"y\n"})
	assert.True(t, strings.HasPrefix(got, `{a="x\"y\n"`))
	assert.True(t, strings.HasSuffix(got, `b="unknown"}`))
}
