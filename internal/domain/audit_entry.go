package domain

import "time"

// AuditAction tags what the lifecycle engine did to a ticket.
type AuditAction string

const (
	AuditActionCreated     AuditAction = "CREATED"
	AuditActionFinalized   AuditAction = "FINALIZED"
	AuditActionTransferred AuditAction = "TRANSFERRED"
)

// AuditEntry is an immutable audit trail record. Entries are only ever
// appended, never updated or deleted.
type AuditEntry struct {
	ID        int64
	TicketID  int64
	AgentID   int64
	Action    AuditAction
	Detail    string
	CreatedAt time.Time
}
