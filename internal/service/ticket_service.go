package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketing/internal/auth"
	"github.com/spec-kit/ticketing/internal/domain"
	"github.com/spec-kit/ticketing/internal/repository"
	apperrors "github.com/spec-kit/ticketing/pkg/util"
)

var (
	ErrTicketNotFound = apperrors.NewNotFound("ticket", nil)
	ErrCloseForbidden = apperrors.NewForbidden("you may not close this ticket")
)

// TicketService implements the ticket lifecycle.
type TicketService struct {
	tickets repository.TicketRepository
	policy  auth.ClosePolicy
	logger  *zap.Logger
}

// TicketDependencies bundles what the service needs.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	ClosePolicy auth.ClosePolicy
	Logger      *zap.Logger
}

// NewTicketService builds the service; a nil policy means AllowAuthenticated.
func NewTicketService(deps TicketDependencies) *TicketService {
	policy := deps.ClosePolicy
	if policy == nil {
		policy = auth.AllowAuthenticated{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{tickets: deps.TicketRepo, policy: policy, logger: logger}
}

// TicketCreateInput is the submitted form.
type TicketCreateInput struct {
	Title       string
	Description string
}

// Validate trims the input and reports the first broken rule.
func (in *TicketCreateInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	switch {
	case in.Title == "":
		return apperrors.NewValidationError("Title is required.",
			map[string]any{"field": "title", "rule": "required"})
	case domain.TitleLength(in.Title) > domain.TitleMaxLength:
		return apperrors.NewValidationError("Title cannot exceed 255 characters.",
			map[string]any{"field": "title", "rule": "max_length", "max": domain.TitleMaxLength})
	case in.Description == "":
		return apperrors.NewValidationError("Description is required.",
			map[string]any{"field": "description", "rule": "required"})
	}
	return nil
}

// CreateTicket validates and stores a new open ticket owned by actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor auth.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:       input.Title,
		Description: input.Description,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   actor.UserID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.logger.Info("ticket created", zap.Int64("ticket_id", ticket.ID), zap.Int64("user_id", actor.UserID))
	return ticket, nil
}

// ListTickets returns tickets matching filter, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter domain.StatusFilter) ([]domain.TicketView, error) {
	return s.tickets.List(ctx, filter)
}

// Stats returns the counts per status.
func (s *TicketService) Stats(ctx context.Context) (domain.TicketStats, error) {
	return s.tickets.Stats(ctx)
}

// GetTicket fetches one ticket with its creator, or ErrTicketNotFound.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.TicketView, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// CloseResult says whether this call performed the transition.
type CloseResult struct {
	TicketID int64
	Closed   bool
}

// CloseTicket moves an open ticket to closed. Closing an already closed ticket,
// or losing a race with a concurrent close, is a no-op rather than an error.
func (s *TicketService) CloseTicket(ctx context.Context, actor auth.Principal, id int64) (CloseResult, error) {
	result := CloseResult{TicketID: id}

	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return result, err
	}
	if !s.policy.CanClose(actor, &ticket.Ticket) {
		return result, ErrCloseForbidden
	}
	if !ticket.IsOpen() {
		return result, nil
	}

	changed, err := s.tickets.Close(ctx, id)
	if err != nil {
		return result, err
	}
	result.Closed = changed
	if changed {
		s.logger.Info("ticket closed", zap.Int64("ticket_id", id), zap.Int64("user_id", actor.UserID))
	}
	return result, nil
}
