package app

import (
	"context"
	"fmt"
	"os"

	httpx "github.com/yungbote/reviewer-backend/internal/http"
	httpH "github.com/yungbote/reviewer-backend/internal/http/handlers"
	httpMW "github.com/yungbote/reviewer-backend/internal/http/middleware"
	"github.com/yungbote/reviewer-backend/internal/observability"
	"github.com/yungbote/reviewer-backend/internal/platform/auth"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Upload   *httpH.UploadHandler
	Reviewer *httpH.ReviewerHandler
}

func wireMiddleware(log *logger.Logger, authn auth.Authenticator) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, authn),
	}
}

func wireHandlers(log *logger.Logger, cfg Config, clients Clients, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(readinessChecks(cfg, clients)...),
		Upload:   httpH.NewUploadHandler(log, services.Pipeline, cfg.UploadDir, int64(cfg.MaxUploadMB)<<20),
		Reviewer: httpH.NewReviewerHandler(log, services.Pipeline),
	}
}

func readinessChecks(cfg Config, clients Clients) []httpH.ReadinessCheck {
	checks := []httpH.ReadinessCheck{
		{Name: "chunks_dir", Check: dirWritable(cfg.ChunksDir)},
		{Name: "index_dir", Check: dirWritable(cfg.IndexDir)},
	}
	if clients.PDFTools != nil && cfg.OCR.Enabled {
		checks = append(checks, httpH.ReadinessCheck{Name: "poppler", Check: clients.PDFTools.AssertReady})
	}
	if clients.EmbedCache != nil {
		checks = append(checks, httpH.ReadinessCheck{Name: "redis", Check: clients.EmbedCache.Ping})
	}
	return checks
}

func dirWritable(dir string) func(context.Context) error {
	return func(context.Context) error {
		st, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !st.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		f, err := os.CreateTemp(dir, ".ready_*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		return os.Remove(name)
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *httpx.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return httpx.NewServer(httpx.RouterConfig{
		Log:             log,
		AuthMiddleware:  middleware.Auth,
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         observability.Current(),
		ServiceName:     serviceName,
		HealthHandler:   handlers.Health,
		UploadHandler:   handlers.Upload,
		ReviewerHandler: handlers.Reviewer,
	})
}
