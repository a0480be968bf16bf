package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hubgeo/atendimento-service/internal/domain"
	apperrors "github.com/hubgeo/atendimento-service/pkg/util/errorutil"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	OwnerID    *int64
	Statuses   []domain.TicketStatus
	Product    *string
	Brand      *string
	OpenedFrom *time.Time
	OpenedTo   *time.Time
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence. The lifecycle engine is
// the only writer; reads are open to any caller.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// GetByIDForUpdate locks the ticket row for the current transaction so
	// concurrent transitions against the same ticket serialize.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// Update persists owner/status/resolution changes guarded by the version
	// the ticket was read at. A stale version surfaces as a conflict.
	Update(ctx context.Context, ticket *domain.Ticket) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	q Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(q Querier) TicketRepository {
	return &ticketRepository{q: q}
}

const ticketColumns = `id, client_name, client_email, client_contact, contact_method, product, brand,
               problem, resolution, owner_agent_id, status, opened_at, closed_at, version`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (client_name, client_email, client_contact, contact_method, product, brand, problem, owner_agent_id, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, opened_at, version`
	return r.q.QueryRow(ctx, query,
		ticket.ClientName,
		ticket.ClientEmail,
		ticket.ClientContact,
		ticket.ContactMethod,
		ticket.Product,
		ticket.Brand,
		ticket.Problem,
		ticket.OwnerID,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.OpenedAt, &ticket.Version)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1 FOR UPDATE`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.q.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.ClientName,
		&ticket.ClientEmail,
		&ticket.ClientContact,
		&ticket.ContactMethod,
		&ticket.Product,
		&ticket.Brand,
		&ticket.Problem,
		&ticket.Resolution,
		&ticket.OwnerID,
		&ticket.Status,
		&ticket.OpenedAt,
		&ticket.ClosedAt,
		&ticket.Version,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET owner_agent_id=$1, status=$2, resolution=$3, closed_at=$4, version=version+1
        WHERE id=$5 AND version=$6`
	cmd, err := r.q.Exec(ctx, query,
		ticket.OwnerID,
		ticket.Status,
		ticket.Resolution,
		ticket.ClosedAt,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// Row gone or updated since the read. The lock in GetByIDForUpdate
		// makes the stale case unreachable inside a transaction; surface a
		// retryable conflict either way.
		return apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticket.ID})
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_agent_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Product != nil && strings.TrimSpace(*filter.Product) != "" {
		args = append(args, *filter.Product)
		clauses = append(clauses, fmt.Sprintf("product=$%d", len(args)))
	}
	if filter.Brand != nil && strings.TrimSpace(*filter.Brand) != "" {
		args = append(args, *filter.Brand)
		clauses = append(clauses, fmt.Sprintf("brand=$%d", len(args)))
	}
	if filter.OpenedFrom != nil {
		args = append(args, *filter.OpenedFrom)
		clauses = append(clauses, fmt.Sprintf("opened_at >= $%d", len(args)))
	}
	if filter.OpenedTo != nil {
		args = append(args, *filter.OpenedTo)
		clauses = append(clauses, fmt.Sprintf("opened_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY opened_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.ClientName,
			&ticket.ClientEmail,
			&ticket.ClientContact,
			&ticket.ContactMethod,
			&ticket.Product,
			&ticket.Brand,
			&ticket.Problem,
			&ticket.Resolution,
			&ticket.OwnerID,
			&ticket.Status,
			&ticket.OpenedAt,
			&ticket.ClosedAt,
			&ticket.Version,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
