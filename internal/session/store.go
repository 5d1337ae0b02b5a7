package session

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/ticketing/internal/domain"
)

// ErrNotFound is returned by a Store when no record exists for an id.
var ErrNotFound = errors.New("session not found")

// Store persists session records keyed by session id.
// A ttl of zero means the record never expires on its own.
type Store interface {
	Get(ctx context.Context, id string) (*domain.SessionData, error)
	Save(ctx context.Context, id string, data domain.SessionData, ttl time.Duration) error
	Touch(ctx context.Context, id string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
