package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
)

func respond(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondAPIError(c, err)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestRespondAPIErrorUsesKind(t *testing.T) {
	rec := respond(fmt.Errorf("ingest: %w", apierr.Newf(apierr.CodeExtractionFailed, "pdf has no pages")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "extraction_failed", got.Code)
	assert.Equal(t, "pdf has no pages", got.Message)
}

func TestRespondAPIErrorHidesUnknownErrors(t *testing.T) {
	rec := respond(errors.New("secret path /var/data"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "internal", got.Code)
	assert.Equal(t, "internal error", got.Message)
}

func TestRespondAPIErrorDeadline(t *testing.T) {
	rec := respond(context.DeadlineExceeded)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "service_timeout", decode(t, rec).Code)
}
