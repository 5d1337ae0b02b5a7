package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticketing/internal/api/http"
	"github.com/spec-kit/ticketing/internal/api/http/handlers"
	"github.com/spec-kit/ticketing/internal/auth"
	"github.com/spec-kit/ticketing/internal/config"
	"github.com/spec-kit/ticketing/internal/observability"
	"github.com/spec-kit/ticketing/internal/persistence"
	"github.com/spec-kit/ticketing/internal/repository"
	"github.com/spec-kit/ticketing/internal/service"
	"github.com/spec-kit/ticketing/internal/session"
	"github.com/spec-kit/ticketing/internal/web"
	"github.com/spec-kit/ticketing/migrations"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return err
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.FS, logger); err != nil {
			logger.Error("failed to run migrations", zap.Error(err))
			return err
		}
	}

	store, closeStore := newSessionStore(ctx, cfg, logger)
	defer closeStore()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{UserRepo: userRepo})
	if err != nil {
		return err
	}
	policy := auth.AllowAuthenticated{}
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		ClosePolicy: policy,
		Logger:      logger,
	})

	renderer, err := web.NewRenderer(cfg.App.Location())
	if err != nil {
		return err
	}

	if cfg.App.IsProduction() && cfg.Auth.CSRFSecret == "dev-secret" {
		logger.Warn("AUTH_CSRF_SECRET is the development default")
	}

	app := httptransport.NewApp(httptransport.Dependencies{
		AppName:  cfg.App.Name,
		Version:  cfg.App.Version,
		Logger:   logger,
		Metrics:  observability.NewMetrics(),
		Renderer: renderer,
		Sessions: session.NewManager(store, session.Options{
			CookieName:   cfg.Session.CookieName,
			CookieSecure: cfg.Session.CookieSecure,
			Lifetime:     cfg.Session.Lifetime(),
			IdleTTL:      cfg.Session.IdleTTL(),
		}, logger),
		Tokens:          auth.NewFormTokens(cfg.Auth.CSRFSecret, cfg.Auth.CSRFTTLMinutes),
		AuthService:     authService,
		TicketService:   ticketService,
		ClosePolicy:     policy,
		ReadinessChecks: map[string]handlers.Pinger{"postgres": pg, "sessions": store},
		RequestTimeout:  cfg.App.RequestTimeout(),
		ShowErrorDetail: !cfg.App.IsProduction(),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("serving", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, logger, nil
}

func newSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Store, func()) {
	if cfg.Session.Store == config.SessionStoreMemory {
		logger.Warn("using in-process session store; sessions are lost on restart")
		return session.NewMemoryStore(), func() {}
	}
	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	return session.NewRedisStore(rdb.Client), rdb.Close
}

