package domain

import "time"

// NotificationType enumerates notification kinds.
type NotificationType string

const (
	NotificationTypeTransferred NotificationType = "TRANSFERRED"
)

// Notification is an alert to one agent about one ticket. Read flips to
// true only through an explicit acknowledge by the recipient.
type Notification struct {
	ID          int64
	RecipientID int64
	TicketID    int64
	Type        NotificationType
	Title       string
	Body        string
	Read        bool
	CreatedAt   time.Time
}
