package service

import (
	"github.com/hubgeo/atendimento-service/internal/domain"
)

// Transition identifies a lifecycle transition subject to authorization.
type Transition string

const (
	TransitionFinalize Transition = "finalize"
	TransitionTransfer Transition = "transfer"
)

// AuthorizationGate answers "may this agent perform this transition on this
// ticket?". The rule is owner-only for every gated transition; the admin
// role governs account management, not ticket transitions.
type AuthorizationGate struct{}

// NewAuthorizationGate constructs the gate.
func NewAuthorizationGate() AuthorizationGate {
	return AuthorizationGate{}
}

// CanAct reports whether actor may perform the transition on ticket.
func (AuthorizationGate) CanAct(actor *domain.Agent, ticket *domain.Ticket, transition Transition) bool {
	if actor == nil || ticket == nil || !actor.Active {
		return false
	}
	switch transition {
	case TransitionFinalize, TransitionTransfer:
		return actor.ID == ticket.OwnerID
	}
	return false
}
