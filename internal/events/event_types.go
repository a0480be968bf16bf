package events

import (
	"time"

	"github.com/hubgeo/atendimento-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketFinalized   EventType = "ticket_finalized"
	EventTicketTransferred EventType = "ticket_transferred"
)

// Event represents a domain event published after a lifecycle transition
// commits. The outbox row itself is written inside the transaction; events
// carry only post-commit side-channel work.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ClientName    string               `json:"client_name"`
	ContactMethod domain.ContactMethod `json:"contact_method"`
	Product       string               `json:"product"`
}

// TicketFinalizedPayload payload.
type TicketFinalizedPayload struct {
	Resolution string    `json:"resolution,omitempty"`
	ClosedAt   time.Time `json:"closed_at"`
}

// TicketTransferredPayload payload.
type TicketTransferredPayload struct {
	FromAgentID int64  `json:"from_agent_id"`
	ToAgentID   int64  `json:"to_agent_id"`
	Reason      string `json:"reason,omitempty"`
}
