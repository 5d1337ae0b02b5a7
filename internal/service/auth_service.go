package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticketing/internal/auth"
	"github.com/spec-kit/ticketing/internal/config"
	"github.com/spec-kit/ticketing/internal/domain"
	"github.com/spec-kit/ticketing/internal/repository"
	apperrors "github.com/spec-kit/ticketing/pkg/util"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = apperrors.NewUnauthorized("invalid email or password")

// AuthService verifies credentials against the user store.
type AuthService struct {
	users      repository.UserRepository
	bcryptCost int
	// dummyHash is compared against when the email is unknown so both failure
	// paths cost one bcrypt comparison.
	dummyHash string
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := auth.HashPassword("not-a-real-password", cost)
	if err != nil {
		return nil, err
	}
	return &AuthService{users: deps.UserRepo, bcryptCost: cost, dummyHash: dummy}, nil
}

// Login returns the user whose email matches exactly and whose password verifies.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_ = auth.ComparePassword(s.dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// CreateUserInput carries seed data for a credential record.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// CreateUser stores a new credential record. It backs the out-of-band seeding command.
func (s *AuthService) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	switch {
	case name == "":
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	case email == "" || !strings.Contains(email, "@"):
		return nil, apperrors.NewValidationError("a valid email is required", map[string]any{"field": "email"})
	case input.Password == "":
		return nil, apperrors.NewValidationError("password is required", map[string]any{"field": "password"})
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewDomainError("CONFLICT", "email already registered", 409, nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = domain.DefaultRole
	}
	user := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
