package dto

import (
	"time"

	"github.com/hubgeo/atendimento-service/internal/domain"
)

// NotificationResponse is one serialized notification.
type NotificationResponse struct {
	ID        int64                   `json:"id"`
	TicketID  int64                   `json:"ticket_id"`
	Type      domain.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Body      string                  `json:"body"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"created_at"`
}

// UnreadNotificationsResponse bundles the unread page and total count.
type UnreadNotificationsResponse struct {
	Items []NotificationResponse `json:"items"`
	Total int64                  `json:"total"`
}
