package http

import (
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticketing/internal/auth"
	"github.com/spec-kit/ticketing/internal/config"
	"github.com/spec-kit/ticketing/internal/domain"
	"github.com/spec-kit/ticketing/internal/observability"
	"github.com/spec-kit/ticketing/internal/repository/memrepo"
	"github.com/spec-kit/ticketing/internal/service"
	"github.com/spec-kit/ticketing/internal/session"
	"github.com/spec-kit/ticketing/internal/web"
)

const (
	testCookie   = "TICKETING_APP"
	alicePass    = "correct horse"
	aliceEmail   = "alice@example.com"
	formEncoding = "application/x-www-form-urlencoded"
)

var tokenPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

type harness struct {
	t        *testing.T
	app      *fiber.App
	sessions *session.MemoryStore
	cookie   string
}

func newHarness(t *testing.T, store session.Store) *harness {
	t.Helper()
	ctx := context.Background()

	repo := memrepo.New()
	authService, err := service.NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost}, service.AuthDependencies{UserRepo: repo.Users()})
	require.NoError(t, err)
	_, err = authService.CreateUser(ctx, service.CreateUserInput{Name: "Alice", Email: aliceEmail, Password: alicePass})
	require.NoError(t, err)

	renderer, err := web.NewRenderer(time.UTC)
	require.NoError(t, err)

	mem, _ := store.(*session.MemoryStore)
	if store == nil {
		mem = session.NewMemoryStore()
		store = mem
	}

	app := NewApp(Dependencies{
		AppName:       "ticketing",
		Version:       "test",
		Logger:        zap.NewNop(),
		Metrics:       observability.NewMetrics(),
		Renderer:      renderer,
		Sessions:      session.NewManager(store, session.Options{CookieName: testCookie, Lifetime: 30 * time.Minute, IdleTTL: time.Hour}, zap.NewNop()),
		Tokens:        auth.NewFormTokens("test-secret", 60),
		AuthService:   authService,
		TicketService: service.NewTicketService(service.TicketDependencies{TicketRepo: repo.Tickets()}),
	})
	return &harness{t: t, app: app, sessions: mem}
}

type result struct {
	status   int
	location string
	body     string
	cookie   *nethttp.Cookie
}

func (h *harness) do(method, path string, form url.Values) result {
	h.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", formEncoding)
	}
	if h.cookie != "" {
		req.AddCookie(&nethttp.Cookie{Name: testCookie, Value: h.cookie})
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)

	res := result{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(raw)}
	for _, c := range resp.Cookies() {
		if c.Name == testCookie {
			res.cookie = c
			h.cookie = c.Value
		}
	}
	return res
}

func (h *harness) login() {
	h.t.Helper()
	res := h.do(fiber.MethodPost, "/login", url.Values{"email": {aliceEmail}, "password": {alicePass}})
	require.Equal(h.t, fiber.StatusSeeOther, res.status)
	require.NotNil(h.t, res.cookie)
}

func (h *harness) formToken(path string) string {
	h.t.Helper()
	res := h.do(fiber.MethodGet, path, nil)
	require.Equal(h.t, fiber.StatusOK, res.status)
	m := tokenPattern.FindStringSubmatch(res.body)
	require.Len(h.t, m, 2, "no form token on %s", path)
	return m[1]
}

func (h *harness) createTicket(title, description string) string {
	h.t.Helper()
	token := h.formToken("/ticket_new")
	res := h.do(fiber.MethodPost, "/ticket_new", url.Values{"title": {title}, "description": {description}, "csrf_token": {token}})
	require.Equal(h.t, fiber.StatusSeeOther, res.status)
	require.True(h.t, strings.HasPrefix(res.location, "/ticket_view?id="))
	return res.location
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	h := newHarness(t, nil)

	for _, path := range []string{"/tickets", "/ticket_new", "/ticket_view?id=1", "/ticket_close", "/"} {
		res := h.do(fiber.MethodGet, path, nil)
		assert.Equal(t, fiber.StatusFound, res.status, path)
		assert.Equal(t, "/login", res.location, path)
	}

	res := h.do(fiber.MethodPost, "/ticket_close", url.Values{"ticket_id": {"1"}})
	assert.Equal(t, fiber.StatusFound, res.status)
	assert.Equal(t, "/login", res.location)
	assert.Equal(t, 0, h.sessions.Len())
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	h := newHarness(t, nil)

	wrong := h.do(fiber.MethodPost, "/login", url.Values{"email": {aliceEmail}, "password": {"nope"}})
	unknown := h.do(fiber.MethodPost, "/login", url.Values{"email": {"bob@example.com"}, "password": {"nope"}})

	for _, res := range []result{wrong, unknown} {
		assert.Equal(t, fiber.StatusUnauthorized, res.status)
		assert.Contains(t, res.body, "Invalid email or password.")
		assert.Nil(t, res.cookie)
	}
	assert.Equal(t, 0, h.sessions.Len())

	empty := h.do(fiber.MethodPost, "/login", url.Values{"email": {""}, "password": {""}})
	assert.Equal(t, fiber.StatusUnprocessableEntity, empty.status)
	assert.Contains(t, empty.body, "Please enter your email and password.")
}

func TestLoginRotatesCookieAndRedirects(t *testing.T) {
	h := newHarness(t, nil)

	// an unknown but well formed id is treated as anonymous and replaced on login
	h.cookie = strings.Repeat("A", 43)
	res := h.do(fiber.MethodPost, "/login", url.Values{"email": {aliceEmail}, "password": {alicePass}})
	require.Equal(t, fiber.StatusSeeOther, res.status)
	assert.Equal(t, "/tickets", res.location)
	require.NotNil(t, res.cookie)
	assert.NotEqual(t, strings.Repeat("A", 43), res.cookie.Value)
	assert.True(t, res.cookie.HttpOnly)

	res = h.do(fiber.MethodGet, "/login", nil)
	assert.Equal(t, fiber.StatusFound, res.status)
	assert.Equal(t, "/tickets", res.location)

	res = h.do(fiber.MethodGet, "/", nil)
	assert.Equal(t, "/tickets", res.location)

	res = h.do(fiber.MethodGet, "/tickets", nil)
	assert.Equal(t, fiber.StatusOK, res.status)
	assert.Contains(t, res.body, "Hello, Alice")
	assert.Contains(t, res.body, "No tickets to show.")
}

func TestTicketLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	h.login()

	location := h.createTicket("  VPN is down ", "Cannot reach\nthe office network")
	id := strings.TrimPrefix(location, "/ticket_view?id=")

	res := h.do(fiber.MethodGet, location, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Contains(t, res.body, "<h3>VPN is down</h3>")
	assert.Contains(t, res.body, "Alice ("+aliceEmail+")")
	assert.Contains(t, res.body, `action="/ticket_close"`)

	token := h.formToken(location)
	for i := 0; i < 2; i++ {
		res = h.do(fiber.MethodPost, "/ticket_close", url.Values{"ticket_id": {id}, "csrf_token": {token}})
		assert.Equal(t, fiber.StatusSeeOther, res.status)
		assert.Equal(t, location, res.location)
	}

	res = h.do(fiber.MethodGet, location, nil)
	assert.Contains(t, res.body, "This ticket is closed.")
	assert.NotContains(t, res.body, `action="/ticket_close"`)

	res = h.do(fiber.MethodGet, "/tickets?status=closed", nil)
	assert.Contains(t, res.body, "VPN is down")
	assert.Contains(t, res.body, "Closed (1)")

	res = h.do(fiber.MethodGet, "/tickets?status=open", nil)
	assert.NotContains(t, res.body, "VPN is down")
	assert.Contains(t, res.body, "Open (0)")

	res = h.do(fiber.MethodGet, "/tickets?status=bogus", nil)
	assert.Contains(t, res.body, "VPN is down")
	assert.Contains(t, res.body, "All (1)")
}

func TestCreateTicketValidationKeepsInput(t *testing.T) {
	h := newHarness(t, nil)
	h.login()

	token := h.formToken("/ticket_new")
	res := h.do(fiber.MethodPost, "/ticket_new", url.Values{"title": {"   "}, "description": {"keep me"}, "csrf_token": {token}})
	assert.Equal(t, fiber.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Title is required.")
	assert.Contains(t, res.body, "keep me")

	res = h.do(fiber.MethodPost, "/ticket_new", url.Values{"title": {strings.Repeat("x", 256)}, "description": {"d"}, "csrf_token": {token}})
	assert.Equal(t, fiber.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Title cannot exceed 255 characters.")

	res = h.do(fiber.MethodPost, "/ticket_new", url.Values{"title": {"t"}, "description": {" "}, "csrf_token": {token}})
	assert.Equal(t, fiber.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Description is required.")

	res = h.do(fiber.MethodGet, "/tickets", nil)
	assert.Contains(t, res.body, "All (0)")
}

func TestFormsRequireToken(t *testing.T) {
	h := newHarness(t, nil)
	h.login()

	res := h.do(fiber.MethodPost, "/ticket_new", url.Values{"title": {"t"}, "description": {"d"}})
	assert.Equal(t, fiber.StatusForbidden, res.status)

	location := h.createTicket("t", "d")
	id := strings.TrimPrefix(location, "/ticket_view?id=")
	res = h.do(fiber.MethodPost, "/ticket_close", url.Values{"ticket_id": {id}, "csrf_token": {"forged"}})
	assert.Equal(t, fiber.StatusForbidden, res.status)

	res = h.do(fiber.MethodGet, location, nil)
	assert.Contains(t, res.body, `action="/ticket_close"`)
}

func TestBadTicketIDsFallBackToList(t *testing.T) {
	h := newHarness(t, nil)
	h.login()
	token := h.formToken("/ticket_new")

	for _, path := range []string{"/ticket_view", "/ticket_view?id=abc", "/ticket_view?id=-3", "/ticket_view?id=999", "/ticket_close"} {
		res := h.do(fiber.MethodGet, path, nil)
		assert.Equal(t, fiber.StatusFound, res.status, path)
		assert.Equal(t, "/tickets", res.location, path)
	}

	for _, id := range []string{"", "abc", "999"} {
		res := h.do(fiber.MethodPost, "/ticket_close", url.Values{"ticket_id": {id}, "csrf_token": {token}})
		assert.Equal(t, fiber.StatusFound, res.status, id)
		assert.Equal(t, "/tickets", res.location, id)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	h := newHarness(t, nil)
	h.login()
	old := h.cookie

	res := h.do(fiber.MethodGet, "/logout", nil)
	assert.Equal(t, fiber.StatusFound, res.status)
	assert.Equal(t, "/login", res.location)
	require.NotNil(t, res.cookie)
	assert.Empty(t, res.cookie.Value)
	assert.Equal(t, 0, h.sessions.Len())

	h.cookie = old
	res = h.do(fiber.MethodGet, "/tickets", nil)
	assert.Equal(t, fiber.StatusFound, res.status)
	assert.Equal(t, "/login", res.location)
}

func TestHealthAndAssets(t *testing.T) {
	h := newHarness(t, nil)

	res := h.do(fiber.MethodGet, "/health/live", nil)
	assert.Equal(t, fiber.StatusOK, res.status)
	assert.Contains(t, res.body, `"alive"`)

	res = h.do(fiber.MethodGet, "/health/ready", nil)
	assert.Equal(t, fiber.StatusOK, res.status)
	assert.Contains(t, res.body, `"sessions":"ok"`)

	res = h.do(fiber.MethodGet, "/assets/style.css", nil)
	assert.Equal(t, fiber.StatusOK, res.status)
	assert.Contains(t, res.body, ".tickets-table")
}

func TestUnknownPathRendersNotFound(t *testing.T) {
	h := newHarness(t, nil)
	h.login()

	res := h.do(fiber.MethodGet, "/nowhere", nil)
	assert.Equal(t, fiber.StatusNotFound, res.status)
	assert.Contains(t, res.body, "Page not found")
}

type brokenStore struct{ *session.MemoryStore }

func (brokenStore) Get(context.Context, string) (*domain.SessionData, error) {
	return nil, errors.New("dial tcp 10.1.1.1:6379: connection refused")
}

func (brokenStore) Ping(context.Context) error {
	return errors.New("dial tcp 10.1.1.1:6379: connection refused")
}

func TestStoreOutageShowsGenericErrorPage(t *testing.T) {
	h := newHarness(t, brokenStore{session.NewMemoryStore()})
	h.cookie = strings.Repeat("A", 43)

	res := h.do(fiber.MethodGet, "/tickets", nil)
	assert.Equal(t, fiber.StatusInternalServerError, res.status)
	assert.Contains(t, res.body, "An unexpected error occurred.")
	assert.NotContains(t, res.body, "10.1.1.1")

	res = h.do(fiber.MethodGet, "/health/ready", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, res.status)
}
