package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/hubgeo/atendimento-service/pkg/util/errorutil"
)

// Querier is the subset of pgx operations repositories need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same repository code runs
// inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UnitOfWork exposes repositories bound to one transaction. Everything
// written through it commits together or not at all.
type UnitOfWork interface {
	Tickets() TicketRepository
	Agents() AgentRepository
	Audit() AuditRepository
	Notifications() NotificationRepository
}

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}

type pgxTxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner builds a TxRunner over a pgx pool.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &pgxTxRunner{pool: pool}
}

func (r *pgxTxRunner) InTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op once committed
	}()

	if err := fn(ctx, &pgxUnitOfWork{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

type pgxUnitOfWork struct {
	q Querier
}

func (u *pgxUnitOfWork) Tickets() TicketRepository             { return NewTicketRepository(u.q) }
func (u *pgxUnitOfWork) Agents() AgentRepository               { return NewAgentRepository(u.q) }
func (u *pgxUnitOfWork) Audit() AuditRepository                { return NewAuditRepository(u.q) }
func (u *pgxUnitOfWork) Notifications() NotificationRepository { return NewNotificationRepository(u.q) }
