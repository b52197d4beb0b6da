package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/reviewer-backend/internal/http/handlers"
	httpMW "github.com/yungbote/reviewer-backend/internal/http/middleware"
	"github.com/yungbote/reviewer-backend/internal/observability"
	"github.com/yungbote/reviewer-backend/internal/platform/auth"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware
	CORSOrigins    []string
	Metrics        *observability.Metrics
	// ServiceName enables otelgin spans when non-empty.
	ServiceName string

	HealthHandler   *httpH.HealthHandler
	UploadHandler   *httpH.UploadHandler
	ReviewerHandler *httpH.ReviewerHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachRequestContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		if cfg.UploadHandler != nil {
			api.POST("/upload/:exam", cfg.UploadHandler.Upload)
		}

		reviewer := api.Group("/reviewer")
		if cfg.AuthMiddleware != nil {
			reviewer.Use(cfg.AuthMiddleware.RequireScope(auth.ScopeAdmin))
		}
		if cfg.ReviewerHandler != nil {
			reviewer.POST("/ask", cfg.ReviewerHandler.Ask)
			reviewer.GET("/mock", cfg.ReviewerHandler.Mock)
		}
	}

	return r
}
