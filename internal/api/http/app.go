package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketing/internal/api/http/handlers"
	"github.com/spec-kit/ticketing/internal/auth"
	"github.com/spec-kit/ticketing/internal/observability"
	"github.com/spec-kit/ticketing/internal/service"
	"github.com/spec-kit/ticketing/internal/session"
	"github.com/spec-kit/ticketing/internal/web"
)

// Dependencies is everything the HTTP layer needs from main.
type Dependencies struct {
	AppName         string
	Version         string
	Logger          *zap.Logger
	Metrics         *observability.Metrics
	Renderer        *web.Renderer
	Sessions        *session.Manager
	Tokens          *auth.FormTokens
	AuthService     *service.AuthService
	TicketService   *service.TicketService
	ClosePolicy     auth.ClosePolicy
	ReadinessChecks map[string]handlers.Pinger
	RequestTimeout  time.Duration
	ShowErrorDetail bool
}

// NewApp builds the fiber application with middlewares and routes registered.
func NewApp(deps Dependencies) *fiber.App {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               deps.AppName,
		Immutable:             true,
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	RegisterMiddlewares(app, deps)

	checks := deps.ReadinessChecks
	if checks == nil {
		checks = map[string]handlers.Pinger{}
	}
	if _, ok := checks["sessions"]; !ok {
		checks["sessions"] = deps.Sessions.Store()
	}

	RegisterRoutes(app, RouteConfig{
		Health:   handlers.NewHealthHandler(deps.AppName, deps.Version, checks, deps.Metrics),
		Auth:     handlers.NewAuthHandler(deps.AuthService, deps.Sessions, deps.Renderer, deps.Logger),
		Tickets:  handlers.NewTicketsHandler(deps.TicketService, deps.ClosePolicy, deps.Tokens, deps.Renderer),
		Sessions: deps.Sessions,
		Tokens:   deps.Tokens,
	})
	return app
}
