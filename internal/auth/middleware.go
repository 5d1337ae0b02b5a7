package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketing/internal/session"
	apperrors "github.com/spec-kit/ticketing/pkg/util"
)

const (
	principalKey = "auth_principal"

	// LoginPath is where unauthenticated callers are sent.
	LoginPath = "/login"

	// FormTokenField is the hidden input carrying the anti-forgery token.
	FormTokenField = "csrf_token"
)

// Principal represents the authenticated caller as recorded in the session.
type Principal struct {
	UserID int64
	Name   string
	Email  string
	Role   string
}

// Authenticated mirrors the session rule: both id and email must be set.
func (p Principal) Authenticated() bool {
	return p.UserID != 0 && p.Email != ""
}

// RequireAuthenticated redirects callers without an authenticated session to the login page.
// Nothing after it in the chain runs for them. Role is never examined.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := session.FromContext(c)
		if !ok || !sess.IsAuthenticated() {
			return c.Redirect(LoginPath, fiber.StatusFound)
		}

		data := sess.Data()
		c.Locals(principalKey, &Principal{
			UserID: data.UserID,
			Name:   data.UserName,
			Email:  data.UserEmail,
			Role:   data.UserRole,
		})
		return c.Next()
	}
}

// RequireFormToken rejects state-changing form posts whose token does not verify.
// It must run after RequireAuthenticated.
func RequireFormToken(tokens *FormTokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return c.Redirect(LoginPath, fiber.StatusFound)
		}
		if err := tokens.Verify(c.FormValue(FormTokenField), principal.UserID); err != nil {
			return apperrors.NewForbidden("the form has expired, please reload the page and try again")
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
