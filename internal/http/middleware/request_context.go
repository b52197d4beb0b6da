package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/reviewer-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachRequestContext gives each request its RequestData and echoes the ids
// back. A caller-supplied request id is kept; the trace id comes from the
// otelgin span when one is active.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, rd := ctxutil.EnsureRequestData(c.Request.Context())

		rd.RequestID = strings.TrimSpace(c.GetHeader(headerRequestID))
		if rd.RequestID == "" || len(rd.RequestID) > 128 {
			rd.RequestID = uuid.NewString()
		}
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			rd.TraceID = sc.TraceID().String()
		} else {
			rd.TraceID = strings.TrimSpace(c.GetHeader(headerTraceID))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Header(headerRequestID, rd.RequestID)
		if rd.TraceID != "" {
			c.Header(headerTraceID, rd.TraceID)
		}
		c.Next()
	}
}
