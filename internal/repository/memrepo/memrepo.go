// Package memrepo holds in-memory repositories for tests and local runs without Postgres.
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticketing/internal/domain"
)

// Store keeps users and tickets in maps. Lookups that miss return pgx.ErrNoRows
// so callers see the same errors as with the Postgres repositories.
type Store struct {
	mu      sync.RWMutex
	users   map[int64]domain.User
	tickets map[int64]domain.Ticket
	nextID  int64
	now     func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:   make(map[int64]domain.User),
		tickets: make(map[int64]domain.Ticket),
		now:     time.Now,
	}
}

// SetClock overrides the time source used for created_at and closed_at.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Users returns a UserRepository view of the store.
func (s *Store) Users() *UserRepo {
	return &UserRepo{s: s}
}

// Tickets returns a TicketRepository view of the store.
func (s *Store) Tickets() *TicketRepo {
	return &TicketRepo{s: s}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// UserRepo implements repository.UserRepository.
type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if user.Role == "" {
		user.Role = domain.DefaultRole
	}
	user.ID = r.s.id()
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// TicketRepo implements repository.TicketRepository.
type TicketRepo struct{ s *Store }

func (r *TicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[ticket.CreatedBy]; !ok {
		return pgx.ErrNoRows
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}
	ticket.ID = r.s.id()
	ticket.CreatedAt = r.s.now()
	r.s.tickets[ticket.ID] = *ticket
	return nil
}

func (r *TicketRepo) GetByID(_ context.Context, id int64) (*domain.TicketView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	view := r.view(ticket)
	return &view, nil
}

func (r *TicketRepo) List(_ context.Context, filter domain.StatusFilter) ([]domain.TicketView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	status, restricted := filter.Status()
	var result []domain.TicketView
	for _, ticket := range r.s.tickets {
		if restricted && ticket.Status != status {
			continue
		}
		result = append(result, r.view(ticket))
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return result, nil
}

func (r *TicketRepo) Close(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok || ticket.Status != domain.TicketStatusOpen {
		return false, nil
	}
	closedAt := r.s.now()
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &closedAt
	r.s.tickets[id] = ticket
	return true, nil
}

func (r *TicketRepo) Stats(_ context.Context) (domain.TicketStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var stats domain.TicketStats
	for _, ticket := range r.s.tickets {
		stats.Total++
		switch ticket.Status {
		case domain.TicketStatusOpen:
			stats.Open++
		case domain.TicketStatusClosed:
			stats.Closed++
		}
	}
	return stats, nil
}

// view must be called with the lock held.
func (r *TicketRepo) view(ticket domain.Ticket) domain.TicketView {
	creator := r.s.users[ticket.CreatedBy]
	return domain.TicketView{Ticket: ticket, CreatorName: creator.Name, CreatorEmail: creator.Email}
}
