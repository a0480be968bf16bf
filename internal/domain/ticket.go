package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusConcluded  TicketStatus = "CONCLUDED"
	TicketStatusCancelled  TicketStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusConcluded || s == TicketStatusCancelled
}

// ContactMethod enumerates how the client reached support.
type ContactMethod string

const (
	ContactMethodEmail    ContactMethod = "EMAIL"
	ContactMethodWhatsApp ContactMethod = "WHATSAPP"
	ContactMethodInPerson ContactMethod = "IN_PERSON"
)

// Valid reports whether m is a known contact method.
func (m ContactMethod) Valid() bool {
	switch m {
	case ContactMethodEmail, ContactMethodWhatsApp, ContactMethodInPerson:
		return true
	}
	return false
}

// Ticket is the aggregate for one customer-service case. OwnerID always
// references exactly one agent; ClosedAt is non-nil iff Status is CONCLUDED.
type Ticket struct {
	ID            int64
	ClientName    string
	ClientEmail   string
	ClientContact string
	ContactMethod ContactMethod
	Product       string
	Brand         string
	Problem       string
	Resolution    string
	OwnerID       int64
	Status        TicketStatus
	OpenedAt      time.Time
	ClosedAt      *time.Time
	Version       int64
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusInProgress: {TicketStatusConcluded, TicketStatusCancelled},
	TicketStatusConcluded:  {},
	TicketStatusCancelled:  {},
}

// CanTransition reports whether a ticket may move from current to next.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
