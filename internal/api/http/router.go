package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"

	"github.com/spec-kit/ticketing/internal/api/http/handlers"
	"github.com/spec-kit/ticketing/internal/auth"
	"github.com/spec-kit/ticketing/internal/session"
	"github.com/spec-kit/ticketing/internal/web"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Tickets  *handlers.TicketsHandler
	Sessions *session.Manager
	Tokens   *auth.FormTokens
}

// RegisterRoutes wires HTTP routes. Probes and assets sit in front of the session layer so
// they never touch the session store.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Use("/assets", filesystem.New(filesystem.Config{
		Root:   nethttp.FS(web.AssetsFS()),
		MaxAge: 3600,
	}))

	site := app.Group("", cfg.Sessions.Middleware())
	site.Get("/", cfg.Auth.Index)
	site.Get("/login", cfg.Auth.LoginForm)
	site.Post("/login", cfg.Auth.Login)
	site.Get("/logout", cfg.Auth.Logout)

	protected := site.Group("", auth.RequireAuthenticated())
	checked := auth.RequireFormToken(cfg.Tokens)

	protected.Get("/tickets", cfg.Tickets.ListTickets)
	protected.Get("/ticket_new", cfg.Tickets.NewTicketForm)
	protected.Post("/ticket_new", checked, cfg.Tickets.CreateTicket)
	protected.Get("/ticket_view", cfg.Tickets.GetTicket)
	protected.Post("/ticket_close", checked, cfg.Tickets.CloseTicket)
	protected.Get("/ticket_close", cfg.Tickets.RedirectToList)
}
