package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketing/internal/domain"
	"github.com/spec-kit/ticketing/internal/session"
	apperrors "github.com/spec-kit/ticketing/pkg/util"
)

func newGateApp(t *testing.T) (*fiber.App, *FormTokens) {
	t.Helper()
	manager := session.NewManager(session.NewMemoryStore(), session.Options{CookieName: "sid", Lifetime: time.Hour}, zap.NewNop())
	tokens := NewFormTokens("secret", 10)

	app := fiber.New(fiber.Config{
		Immutable: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Use(manager.Middleware())
	app.Post("/login", func(c *fiber.Ctx) error {
		return manager.Login(c, &domain.User{ID: 3, Name: "Bob", Email: "bob@example.com", Role: "admin"})
	})

	protected := app.Group("", RequireAuthenticated())
	protected.Get("/secret", func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.Name + "|" + p.Role)
	})
	protected.Post("/submit", RequireFormToken(tokens), func(c *fiber.Ctx) error {
		return c.SendString("accepted")
	})
	return app, tokens
}

func login(t *testing.T, app *fiber.App) *http.Cookie {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil), -1)
	require.NoError(t, err)
	for _, c := range resp.Cookies() {
		if c.Name == "sid" {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestRequireAuthenticatedRedirects(t *testing.T) {
	app, _ := newGateApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/secret", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, LoginPath, resp.Header.Get("Location"))
	body, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(body), "Bob")
}

func TestRequireAuthenticatedExposesPrincipal(t *testing.T) {
	app, _ := newGateApp(t)
	cookie := login(t, app)

	req := httptest.NewRequest(http.MethodGet, "/secret", nil)
	req.AddCookie(cookie)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bob|admin", string(body))
}

func TestRequireFormToken(t *testing.T) {
	app, tokens := newGateApp(t)
	cookie := login(t, app)

	good, err := tokens.Issue(3)
	require.NoError(t, err)
	forOther, err := tokens.Issue(4)
	require.NoError(t, err)

	items := []struct {
		name   string
		token  string
		status int
	}{
		{"valid", good, fiber.StatusOK},
		{"missing", "", fiber.StatusForbidden},
		{"other user", forOther, fiber.StatusForbidden},
	}

	for _, item := range items {
		t.Run(item.name, func(t *testing.T) {
			form := url.Values{FormTokenField: {item.token}}
			req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.AddCookie(cookie)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, item.status, resp.StatusCode)
		})
	}
}

func TestAllowAuthenticatedPolicy(t *testing.T) {
	policy := AllowAuthenticated{}
	ticket := &domain.Ticket{ID: 1, CreatedBy: 99, Status: domain.TicketStatusOpen}

	assert.True(t, policy.CanClose(Principal{UserID: 1, Email: "a@example.com", Role: "user"}, ticket))
	assert.True(t, policy.CanClose(Principal{UserID: 2, Email: "b@example.com"}, ticket))
	assert.False(t, policy.CanClose(Principal{}, ticket))
}
