package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/reviewer-backend/internal/platform/ctxutil"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

// RequestLogger writes one line per request at a level chosen by status.
// Health and metrics probes are only logged when they fail.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	log = log.With("middleware", "RequestLogger")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		status := c.Writer.Status()
		if status < 400 && isProbe(route) {
			return
		}
		if route == "" {
			route = c.Request.URL.Path
		}
		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		kv = append(kv, ctxutil.GetRequestData(c.Request.Context()).LogFields()...)
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			kv = append(kv, "errors", errs.String())
		}

		switch {
		case status >= 500:
			log.Error("request failed", kv...)
		case status >= 400:
			log.Warn("request rejected", kv...)
		default:
			log.Info("request served", kv...)
		}
	}
}

func isProbe(route string) bool {
	switch route {
	case "/healthcheck", "/readyz", "/metrics":
		return true
	}
	return false
}
