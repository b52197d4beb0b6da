package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/reviewer-backend/internal/observability"
	"github.com/yungbote/reviewer-backend/internal/platform/auth"
	"github.com/yungbote/reviewer-backend/internal/platform/envutil"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Services Services

	shutdownOtel func(context.Context) error
}

// New loads configuration and wires every client and service. The HTTP
// surface is only built by Serve so CLI commands do not need a JWT secret.
func New(ctx context.Context) (*App, error) {
	log, err := logger.NewWithOptions(logger.Options{
		Mode:     envutil.String("LOG_MODE", "development"),
		Level:    envutil.String("LOG_LEVEL", ""),
		Redact:   envutil.Bool("LOG_REDACTION_ENABLED", true),
		HashSalt: envutil.String("LOG_HASH_SALT", ""),
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	for _, dir := range []string{cfg.ChunksDir, cfg.IndexDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Sync()
			return nil, fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}

	shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Otel.Endpoint,
		Insecure:    cfg.Otel.Insecure,
		Headers:     observability.ParseHeaders(cfg.Otel.Headers),
		SampleRatio: cfg.Otel.SampleRatio,
	})
	observability.Init(log)

	clientset, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = shutdownOtel(context.Background())
		log.Sync()
		return nil, err
	}
	serviceset := wireServices(log, cfg, clientset)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clientset,
		Services:     serviceset,
		shutdownOtel: shutdownOtel,
	}, nil
}

// Serve runs the API (and the standalone metrics listener when configured)
// until ctx is cancelled or a listener fails.
func (a *App) Serve(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Cfg.JWTSecretKey == "" {
		return errors.New("JWT_SECRET_KEY is required to serve")
	}
	authn, err := auth.NewJWTAuthenticator(a.Log, a.Cfg.JWTSecretKey)
	if err != nil {
		return fmt.Errorf("init authenticator: %w", err)
	}

	handlerset := wireHandlers(a.Log, a.Cfg, a.Clients, a.Services)
	middleware := wireMiddleware(a.Log, authn)
	server := wireServer(a.Log, a.Cfg, handlerset, middleware)

	g, gctx := errgroup.WithContext(ctx)
	observability.Current().StartServer(gctx, a.Log, a.Cfg.MetricsAddr)
	g.Go(func() error {
		a.Log.Info("http server listening", "addr", a.Cfg.Addr())
		return server.Run(gctx, a.Cfg.Addr(), a.Cfg.ShutdownTimeout())
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
