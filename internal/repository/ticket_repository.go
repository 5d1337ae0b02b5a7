package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticketing/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.TicketView, error)
	List(ctx context.Context, filter domain.StatusFilter) ([]domain.TicketView, error)
	// Close moves an open ticket to closed and reports whether a row changed.
	Close(ctx context.Context, id int64) (bool, error)
	Stats(ctx context.Context) (domain.TicketStats, error)
}

type ticketRepository struct {
	db DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DB) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketViewColumns = `t.id, t.title, t.description, t.status, t.created_by, t.created_at, t.closed_at,
               u.name, u.email`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, created_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`

	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}
	return r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.CreatedBy,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.TicketView, error) {
	query := `
        SELECT ` + ticketViewColumns + `
        FROM tickets t
        INNER JOIN users u ON t.created_by = u.id
        WHERE t.id=$1`

	var view domain.TicketView
	if err := scanTicketView(r.db.QueryRow(ctx, query, id), &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *ticketRepository) List(ctx context.Context, filter domain.StatusFilter) ([]domain.TicketView, error) {
	query, args := buildListQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTicketViews(rows)
}

// Close is conditioned on the current status so concurrent callers cannot both transition.
func (r *ticketRepository) Close(ctx context.Context, id int64) (bool, error) {
	const query = `
        UPDATE tickets SET status=$1, closed_at=NOW()
        WHERE id=$2 AND status=$3`
	cmd, err := r.db.Exec(ctx, query, domain.TicketStatusClosed, id, domain.TicketStatusOpen)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) Stats(ctx context.Context) (domain.TicketStats, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status=$1),
               COUNT(*) FILTER (WHERE status=$2)
        FROM tickets`

	var stats domain.TicketStats
	err := r.db.QueryRow(ctx, query, domain.TicketStatusOpen, domain.TicketStatusClosed).
		Scan(&stats.Total, &stats.Open, &stats.Closed)
	return stats, err
}

func buildListQuery(filter domain.StatusFilter) (string, []any) {
	base := `SELECT ` + ticketViewColumns + `
             FROM tickets t
             INNER JOIN users u ON t.created_by = u.id`
	args := []any{}

	where := ""
	if status, ok := filter.Status(); ok {
		args = append(args, status)
		where = fmt.Sprintf(" WHERE t.status=$%d", len(args))
	}

	return base + where + ` ORDER BY t.created_at DESC, t.id DESC`, args
}

func scanTicketView(row pgx.Row, view *domain.TicketView) error {
	return row.Scan(
		&view.ID,
		&view.Title,
		&view.Description,
		&view.Status,
		&view.CreatedBy,
		&view.CreatedAt,
		&view.ClosedAt,
		&view.CreatorName,
		&view.CreatorEmail,
	)
}

func scanTicketViews(rows pgx.Rows) ([]domain.TicketView, error) {
	var result []domain.TicketView
	for rows.Next() {
		var view domain.TicketView
		if err := scanTicketView(rows, &view); err != nil {
			return nil, err
		}
		result = append(result, view)
	}
	return result, rows.Err()
}
