package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/hubgeo/atendimento-service/internal/domain"
)

// NotificationRepository stores the per-agent notification outbox.
type NotificationRepository interface {
	Enqueue(ctx context.Context, notification *domain.Notification) error
	ListUnread(ctx context.Context, recipientID int64, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, recipientID int64) (int64, error)
	// Acknowledge marks the notification read when it belongs to recipientID.
	// Ownership mismatch and absence both come back as pgx.ErrNoRows; the
	// caller cannot tell them apart.
	Acknowledge(ctx context.Context, id, recipientID int64) error
}

type notificationRepository struct {
	q Querier
}

// NewNotificationRepository instantiates the repository.
func NewNotificationRepository(q Querier) NotificationRepository {
	return &notificationRepository{q: q}
}

func (r *notificationRepository) Enqueue(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient_agent_id, ticket_id, notification_type, title, body)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, read_flag, created_at`
	return r.q.QueryRow(ctx, query,
		notification.RecipientID,
		notification.TicketID,
		notification.Type,
		notification.Title,
		notification.Body,
	).Scan(&notification.ID, &notification.Read, &notification.CreatedAt)
}

func (r *notificationRepository) ListUnread(ctx context.Context, recipientID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id, recipient_agent_id, ticket_id, notification_type, title, body, read_flag, created_at
        FROM notifications
        WHERE recipient_agent_id=$1 AND read_flag=FALSE
        ORDER BY created_at DESC, id DESC
        LIMIT $2`
	rows, err := r.q.Query(ctx, query, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var notification domain.Notification
		if err := rows.Scan(
			&notification.ID,
			&notification.RecipientID,
			&notification.TicketID,
			&notification.Type,
			&notification.Title,
			&notification.Body,
			&notification.Read,
			&notification.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, notification)
	}
	return result, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE recipient_agent_id=$1 AND read_flag=FALSE`
	var count int64
	if err := r.q.QueryRow(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *notificationRepository) Acknowledge(ctx context.Context, id, recipientID int64) error {
	const query = `
        UPDATE notifications SET read_flag=TRUE
        WHERE id=$1 AND recipient_agent_id=$2`
	cmd, err := r.q.Exec(ctx, query, id, recipientID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
