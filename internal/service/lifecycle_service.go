package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/hubgeo/atendimento-service/internal/domain"
	"github.com/hubgeo/atendimento-service/internal/events"
	"github.com/hubgeo/atendimento-service/internal/repository"
	apperrors "github.com/hubgeo/atendimento-service/pkg/util/errorutil"
)

// LifecycleService is the only writer of ticket state. Every transition runs
// inside one transaction covering ticket mutation, audit entry, and
// notification, so a failed commit leaves nothing behind.
type LifecycleService struct {
	runner     repository.TxRunner
	tickets    repository.TicketRepository
	audit      repository.AuditRepository
	gate       AuthorizationGate
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TxRunner   repository.TxRunner
	TicketRepo repository.TicketRepository
	AuditRepo  repository.AuditRepository
	Gate       AuthorizationGate
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	ClientName    string
	ClientEmail   string
	ClientContact string
	ContactMethod domain.ContactMethod
	Product       string
	Brand         string
	Problem       string
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		runner:     deps.TxRunner,
		tickets:    deps.TicketRepo,
		audit:      deps.AuditRepo,
		gate:       deps.Gate,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// CreateTicket opens a new in-progress ticket owned by the acting agent.
func (s *LifecycleService) CreateTicket(ctx context.Context, actor *domain.Agent, input CreateTicketInput) (*domain.Ticket, error) {
	if err := requireActiveAgent(actor); err != nil {
		return nil, err
	}

	input.ClientName = strings.TrimSpace(input.ClientName)
	input.Problem = strings.TrimSpace(input.Problem)
	missing := []string{}
	if input.ClientName == "" {
		missing = append(missing, "client_name")
	}
	if input.Problem == "" {
		missing = append(missing, "problem")
	}
	if !input.ContactMethod.Valid() {
		missing = append(missing, "contact_method")
	}
	if strings.TrimSpace(input.Product) == "" {
		missing = append(missing, "product")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("required fields missing or invalid", map[string]any{"fields": missing})
	}

	ticket := &domain.Ticket{
		ClientName:    input.ClientName,
		ClientEmail:   strings.TrimSpace(input.ClientEmail),
		ClientContact: strings.TrimSpace(input.ClientContact),
		ContactMethod: input.ContactMethod,
		Product:       strings.TrimSpace(input.Product),
		Brand:         strings.TrimSpace(input.Brand),
		Problem:       input.Problem,
		OwnerID:       actor.ID,
		Status:        domain.TicketStatusInProgress,
	}

	err := s.runner.InTx(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		if err := uow.Tickets().Create(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		entry := &domain.AuditEntry{
			TicketID: ticket.ID,
			AgentID:  actor.ID,
			Action:   domain.AuditActionCreated,
			Detail:   fmt.Sprintf("ticket opened for %s", ticket.ClientName),
		}
		if err := uow.Audit().Append(ctx, entry); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCreatedPayload{
			ClientName:    ticket.ClientName,
			ContactMethod: ticket.ContactMethod,
			Product:       ticket.Product,
		},
	})
	return ticket, nil
}

// FinalizeTicket concludes an in-progress ticket. Repeating the call on an
// already concluded ticket reports AlreadyFinalized and changes nothing,
// with no duplicate audit entry.
func (s *LifecycleService) FinalizeTicket(ctx context.Context, actor *domain.Agent, ticketID int64, resolution string) (*domain.Ticket, error) {
	if err := requireActiveAgent(actor); err != nil {
		return nil, err
	}

	var result *domain.Ticket
	err := s.runner.InTx(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		ticket, err := uow.Tickets().GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return apperrors.MapError(err)
		}
		if !s.gate.CanAct(actor, ticket, TransitionFinalize) {
			return apperrors.NewForbidden("only the current owner may finalize")
		}
		if ticket.Status == domain.TicketStatusConcluded {
			return apperrors.NewAlreadyFinalized(ticket.ID)
		}
		if !domain.CanTransition(ticket.Status, domain.TicketStatusConcluded) {
			return apperrors.NewInvalidState("cancelled tickets cannot be finalized", map[string]any{"status": ticket.Status})
		}

		now := time.Now()
		ticket.Status = domain.TicketStatusConcluded
		ticket.ClosedAt = &now
		if notes := strings.TrimSpace(resolution); notes != "" {
			ticket.Resolution = notes
		}
		if err := uow.Tickets().Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}

		entry := &domain.AuditEntry{
			TicketID: ticket.ID,
			AgentID:  actor.ID,
			Action:   domain.AuditActionFinalized,
			Detail:   fmt.Sprintf("ticket finalized by %s", actor.Name),
		}
		if err := uow.Audit().Append(ctx, entry); err != nil {
			return apperrors.MapError(err)
		}
		result = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketFinalized,
		TicketID: result.ID,
		ActorID:  actor.ID,
		Payload: events.TicketFinalizedPayload{
			Resolution: result.Resolution,
			ClosedAt:   *result.ClosedAt,
		},
	})
	return result, nil
}

// TransferTicket reassigns an in-progress ticket to another active agent and
// notifies the new owner, all within the same transaction.
func (s *LifecycleService) TransferTicket(ctx context.Context, actor *domain.Agent, ticketID, newOwnerID int64, reason string) (*domain.Ticket, error) {
	if err := requireActiveAgent(actor); err != nil {
		return nil, err
	}

	var (
		result    *domain.Ticket
		prevOwner int64
	)
	err := s.runner.InTx(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		ticket, err := uow.Tickets().GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return apperrors.MapError(err)
		}
		if !s.gate.CanAct(actor, ticket, TransitionTransfer) {
			return apperrors.NewForbidden("only the current owner may transfer")
		}
		if ticket.Status != domain.TicketStatusInProgress {
			return apperrors.NewInvalidState("only in-progress tickets may be transferred", map[string]any{"status": ticket.Status})
		}
		if newOwnerID == ticket.OwnerID {
			return apperrors.NewValidationError("new owner must differ from current owner", map[string]any{"agent_id": newOwnerID})
		}

		newOwner, err := uow.Agents().GetByID(ctx, newOwnerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewValidationError("target agent does not exist", map[string]any{"agent_id": newOwnerID})
			}
			return apperrors.MapError(err)
		}
		if !newOwner.Active {
			return apperrors.NewValidationError("target agent is inactive", map[string]any{"agent_id": newOwnerID})
		}

		prior, err := uow.Agents().GetByID(ctx, ticket.OwnerID)
		if err != nil {
			return apperrors.MapError(err)
		}

		prevOwner = ticket.OwnerID
		ticket.OwnerID = newOwner.ID
		if err := uow.Tickets().Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}

		reasonText := strings.TrimSpace(reason)
		if reasonText == "" {
			reasonText = "not informed"
		}

		entry := &domain.AuditEntry{
			TicketID: ticket.ID,
			AgentID:  actor.ID,
			Action:   domain.AuditActionTransferred,
			Detail:   fmt.Sprintf("from %s to %s, reason: %s", prior.Name, newOwner.Name, reasonText),
		}
		if err := uow.Audit().Append(ctx, entry); err != nil {
			return apperrors.MapError(err)
		}

		notification := &domain.Notification{
			RecipientID: newOwner.ID,
			TicketID:    ticket.ID,
			Type:        domain.NotificationTypeTransferred,
			Title:       fmt.Sprintf("Ticket #%d transferred to you", ticket.ID),
			Body:        fmt.Sprintf("%s transferred the ticket for %s to you. Reason: %s", actor.Name, ticket.ClientName, reasonText),
		}
		if err := uow.Notifications().Enqueue(ctx, notification); err != nil {
			return apperrors.MapError(err)
		}
		result = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketTransferred,
		TicketID: result.ID,
		ActorID:  actor.ID,
		Payload: events.TicketTransferredPayload{
			FromAgentID: prevOwner,
			ToAgentID:   result.OwnerID,
			Reason:      strings.TrimSpace(reason),
		},
	})
	return result, nil
}

// GetTicket fetches one ticket by id.
func (s *LifecycleService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns tickets matching the filter.
func (s *LifecycleService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAuditEntries returns the audit trail of one ticket in creation order.
func (s *LifecycleService) ListAuditEntries(ctx context.Context, ticketID int64) ([]domain.AuditEntry, error) {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.audit.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func requireActiveAgent(actor *domain.Agent) error {
	if actor == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if !actor.Active {
		return apperrors.NewForbidden("inactive agents cannot act on tickets")
	}
	return nil
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
