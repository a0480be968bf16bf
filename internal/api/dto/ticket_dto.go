package dto

import (
	"time"

	"github.com/hubgeo/atendimento-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ClientName    string               `json:"client_name"`
	ClientEmail   string               `json:"client_email"`
	ClientContact string               `json:"client_contact"`
	ContactMethod domain.ContactMethod `json:"contact_method"`
	Product       string               `json:"product"`
	Brand         string               `json:"brand"`
	Problem       string               `json:"problem"`
}

// FinalizeTicketRequest payload.
type FinalizeTicketRequest struct {
	Resolution string `json:"resolution"`
}

// TransferTicketRequest payload.
type TransferTicketRequest struct {
	NewOwnerID int64  `json:"new_owner_id"`
	Reason     string `json:"reason"`
}

// TicketResponse is the serialized ticket shape.
type TicketResponse struct {
	ID            int64                `json:"id"`
	ClientName    string               `json:"client_name"`
	ClientEmail   string               `json:"client_email,omitempty"`
	ClientContact string               `json:"client_contact,omitempty"`
	ContactMethod domain.ContactMethod `json:"contact_method"`
	Product       string               `json:"product"`
	Brand         string               `json:"brand,omitempty"`
	Problem       string               `json:"problem"`
	Resolution    string               `json:"resolution,omitempty"`
	OwnerID       int64                `json:"owner_id"`
	Status        domain.TicketStatus  `json:"status"`
	OpenedAt      time.Time            `json:"opened_at"`
	ClosedAt      *time.Time           `json:"closed_at,omitempty"`
}

// AuditEntryResponse is one serialized audit trail entry.
type AuditEntryResponse struct {
	ID        int64              `json:"id"`
	AgentID   int64              `json:"agent_id"`
	Action    domain.AuditAction `json:"action"`
	Detail    string             `json:"detail"`
	CreatedAt time.Time          `json:"created_at"`
}

// TicketDetailResponse provides the ticket plus its audit trail.
type TicketDetailResponse struct {
	TicketResponse
	AuditEntries []AuditEntryResponse `json:"audit_entries"`
}
