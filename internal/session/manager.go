package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketing/internal/domain"
)

const (
	sessionKey = "session"
	idBytes    = 32
)

var idLength = base64.RawURLEncoding.EncodedLen(idBytes)

// Options configures cookies and rotation.
type Options struct {
	CookieName   string
	CookieSecure bool
	// Lifetime bounds how long one session id is used before it is replaced.
	Lifetime time.Duration
	// IdleTTL is how long the store keeps a record nobody touches.
	IdleTTL time.Duration
}

// Session is the per-request view of a server-side session.
// An anonymous session has no id and is not persisted until someone logs in.
type Session struct {
	id   string
	data domain.SessionData
}

// ID returns the current session id, or "" for an unpersisted session.
func (s *Session) ID() string {
	return s.id
}

// Data returns a copy of the stored values.
func (s *Session) Data() domain.SessionData {
	return s.data
}

// IsAuthenticated is true iff the session carries a user id and email.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.data.Authenticated()
}

// Manager issues, resumes, rotates and destroys sessions.
type Manager struct {
	store  Store
	opts   Options
	logger *zap.Logger
	now    func() time.Time
	random io.Reader
}

// NewManager builds a manager on top of a store.
func NewManager(store Store, opts Options, logger *zap.Logger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "TICKETING_APP"
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = 30 * time.Minute
	}
	return &Manager{store: store, opts: opts, logger: logger, now: time.Now, random: rand.Reader}
}

// Store exposes the backing store for readiness checks.
func (m *Manager) Store() Store {
	return m.store
}

// Middleware runs Start for every request so handlers and the gate can read the session.
func (m *Manager) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := m.Start(c); err != nil {
			return err
		}
		return c.Next()
	}
}

// Start ensures the request has a session. It resumes the one named by the cookie, or
// begins an anonymous one when the cookie is missing, malformed or unknown. A resumed
// session older than the lifetime gets a fresh id; its contents are kept.
// Calling Start again on the same request returns the same session.
func (m *Manager) Start(c *fiber.Ctx) (*Session, error) {
	if sess, ok := FromContext(c); ok {
		return sess, nil
	}

	sess, err := m.resume(c)
	if err != nil {
		return nil, err
	}
	c.Locals(sessionKey, sess)
	return sess, nil
}

func (m *Manager) resume(c *fiber.Ctx) (*Session, error) {
	ctx := c.UserContext()
	now := m.now()

	id := c.Cookies(m.opts.CookieName)
	if !validID(id) {
		return m.anonymous(now), nil
	}

	data, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return m.anonymous(now), nil
		}
		return nil, err
	}

	sess := &Session{id: id, data: *data}
	if now.Sub(data.CreatedAt) > m.opts.Lifetime {
		if err := m.rotate(c, sess); err != nil {
			return nil, err
		}
		m.logger.Debug("session id rotated", zap.Int64("user_id", sess.data.UserID))
		return sess, nil
	}

	if err := m.store.Touch(ctx, id, m.opts.IdleTTL); err != nil {
		return nil, err
	}
	return sess, nil
}

// Login binds the session to user under a brand new id; any previous id is discarded.
func (m *Manager) Login(c *fiber.Ctx, user *domain.User) error {
	sess, err := m.Start(c)
	if err != nil {
		return err
	}

	sess.data = domain.SessionData{
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
		UserRole:  user.Role,
	}
	return m.rotate(c, sess)
}

// Logout clears the session, deletes its record and expires the cookie.
func (m *Manager) Logout(c *fiber.Ctx) error {
	sess, err := m.Start(c)
	if err != nil {
		return err
	}

	if sess.id != "" {
		if err := m.store.Delete(c.UserContext(), sess.id); err != nil {
			return err
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  m.now().Add(-42000 * time.Second),
		HTTPOnly: true,
		Secure:   m.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	sess.id = ""
	sess.data = domain.SessionData{CreatedAt: m.now()}
	return nil
}

// rotate moves the session contents to a new id and resets created_at.
func (m *Manager) rotate(c *fiber.Ctx, sess *Session) error {
	ctx := c.UserContext()

	newID, err := m.newID()
	if err != nil {
		return err
	}

	data := sess.data
	data.CreatedAt = m.now()
	if err := m.store.Save(ctx, newID, data, m.opts.IdleTTL); err != nil {
		return err
	}
	if sess.id != "" {
		if err := m.store.Delete(ctx, sess.id); err != nil {
			m.logger.Warn("failed to delete rotated session", zap.Error(err))
		}
	}

	sess.id = newID
	sess.data = data
	m.setCookie(c, newID)
	return nil
}

func (m *Manager) setCookie(c *fiber.Ctx, id string) {
	c.Cookie(&fiber.Cookie{
		Name:     m.opts.CookieName,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		Secure:   m.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (m *Manager) anonymous(now time.Time) *Session {
	return &Session{data: domain.SessionData{CreatedAt: now}}
}

func (m *Manager) newID() (string, error) {
	buf := make([]byte, idBytes)
	if _, err := io.ReadFull(m.random, buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func validID(id string) bool {
	if len(id) != idLength {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil
}

// FromContext returns the session attached by Start.
func FromContext(c *fiber.Ctx) (*Session, bool) {
	sess, ok := c.Locals(sessionKey).(*Session)
	return sess, ok && sess != nil
}
