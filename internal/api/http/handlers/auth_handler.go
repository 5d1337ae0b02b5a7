package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketing/internal/auth"
	"github.com/spec-kit/ticketing/internal/service"
	"github.com/spec-kit/ticketing/internal/session"
	"github.com/spec-kit/ticketing/internal/web"
)

const (
	msgMissingCredentials = "Please enter your email and password."
	msgInvalidCredentials = "Invalid email or password."
)

// AuthHandler serves the login and logout pages.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *session.Manager
	renderer *web.Renderer
	logger   *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, sessions *session.Manager, renderer *web.Renderer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, sessions: sessions, renderer: renderer, logger: logger}
}

// Index GET /.
func (h *AuthHandler) Index(c *fiber.Ctx) error {
	if h.authenticated(c) {
		return c.Redirect(TicketsPath, fiber.StatusFound)
	}
	return c.Redirect(auth.LoginPath, fiber.StatusFound)
}

// LoginForm GET /login.
func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	if h.authenticated(c) {
		return c.Redirect(TicketsPath, fiber.StatusFound)
	}
	return h.renderLogin(c, fiber.StatusOK, "", "")
}

// Login POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if h.authenticated(c) {
		return c.Redirect(TicketsPath, fiber.StatusFound)
	}

	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")
	if email == "" || password == "" {
		return h.renderLogin(c, fiber.StatusUnprocessableEntity, email, msgMissingCredentials)
	}

	user, err := h.auth.Login(c.UserContext(), email, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.Info("login failed", zap.String("ip", c.IP()))
			return h.renderLogin(c, fiber.StatusUnauthorized, email, msgInvalidCredentials)
		}
		return err
	}

	if err := h.sessions.Login(c, user); err != nil {
		return err
	}
	h.logger.Info("login succeeded", zap.Int64("user_id", user.ID))
	return c.Redirect(TicketsPath, fiber.StatusSeeOther)
}

// Logout GET /logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.Logout(c); err != nil {
		return err
	}
	return c.Redirect(auth.LoginPath, fiber.StatusFound)
}

func (h *AuthHandler) authenticated(c *fiber.Ctx) bool {
	sess, ok := session.FromContext(c)
	return ok && sess.IsAuthenticated()
}

func (h *AuthHandler) renderLogin(c *fiber.Ctx, status int, email, message string) error {
	return h.renderer.Render(c, status, "login", web.Page{
		Title: "Sign in",
		Error: message,
		Data:  fiber.Map{"Email": email},
	})
}
