package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hubgeo/atendimento-service/internal/domain"
	apperrors "github.com/hubgeo/atendimento-service/pkg/util/errorutil"
)

type lifecycleFixture struct {
	store   *memStore
	runner  *memTxRunner
	service *LifecycleService
}

func newLifecycleFixture() *lifecycleFixture {
	store := newMemStore()
	runner := &memTxRunner{store: store}
	svc := NewLifecycleService(LifecycleDependencies{
		TxRunner:   runner,
		TicketRepo: &memTicketRepo{store},
		AuditRepo:  &memAuditRepo{store},
		Gate:       NewAuthorizationGate(),
	})
	return &lifecycleFixture{store: store, runner: runner, service: svc}
}

func activeAgent(id int64, name string) domain.Agent {
	return domain.Agent{ID: id, Name: name, Email: name + "@hubgeo.test", Role: domain.AgentRoleAgent, Active: true}
}

func TestCreateTicket(t *testing.T) {
	ctx := context.Background()

	validInput := CreateTicketInput{
		ClientName:    "Jane Doe",
		ClientContact: "+55 11 98888-7777",
		ContactMethod: domain.ContactMethodWhatsApp,
		Product:       "GNSS receiver",
		Brand:         "Trimble",
		Problem:       "device does not power on",
	}

	t.Run("opens in-progress ticket owned by actor", func(t *testing.T) {
		fx := newLifecycleFixture()
		agent := fx.store.addAgent(activeAgent(1, "alice"))

		ticket, err := fx.service.CreateTicket(ctx, &agent, validInput)
		if err != nil {
			t.Fatalf("CreateTicket: %v", err)
		}
		if ticket.ID == 0 {
			t.Fatal("expected assigned ticket id")
		}
		if ticket.Status != domain.TicketStatusInProgress {
			t.Fatalf("status = %s, want %s", ticket.Status, domain.TicketStatusInProgress)
		}
		if ticket.OwnerID != agent.ID {
			t.Fatalf("owner = %d, want %d", ticket.OwnerID, agent.ID)
		}
		if ticket.ClosedAt != nil {
			t.Fatal("closed_at must be nil while in progress")
		}
		if got := len(fx.store.audit); got != 1 {
			t.Fatalf("audit entries = %d, want 1", got)
		}
		if fx.store.audit[0].Action != domain.AuditActionCreated {
			t.Fatalf("audit action = %s, want %s", fx.store.audit[0].Action, domain.AuditActionCreated)
		}
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		fx := newLifecycleFixture()
		agent := fx.store.addAgent(activeAgent(1, "alice"))

		_, err := fx.service.CreateTicket(ctx, &agent, CreateTicketInput{
			ClientName:    "  ",
			ContactMethod: domain.ContactMethod("CARRIER_PIGEON"),
		})
		if !apperrors.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		var domainErr *apperrors.DomainError
		if !errors.As(err, &domainErr) {
			t.Fatalf("expected DomainError, got %T", err)
		}
		missing, _ := domainErr.Details["fields"].([]string)
		for _, field := range []string{"client_name", "problem", "contact_method", "product"} {
			found := false
			for _, m := range missing {
				if m == field {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("missing fields %v do not include %s", missing, field)
			}
		}
		if len(fx.store.tickets) != 0 || len(fx.store.audit) != 0 {
			t.Fatal("failed creation must not persist anything")
		}
	})

	t.Run("rejects anonymous and inactive actors", func(t *testing.T) {
		fx := newLifecycleFixture()
		if _, err := fx.service.CreateTicket(ctx, nil, validInput); !apperrors.IsUnauthorized(err) {
			t.Fatalf("nil actor: expected unauthorized, got %v", err)
		}
		inactive := activeAgent(9, "ghost")
		inactive.Active = false
		fx.store.addAgent(inactive)
		if _, err := fx.service.CreateTicket(ctx, &inactive, validInput); !apperrors.IsForbidden(err) {
			t.Fatalf("inactive actor: expected forbidden, got %v", err)
		}
	})

	t.Run("discards ticket and audit together on commit failure", func(t *testing.T) {
		fx := newLifecycleFixture()
		agent := fx.store.addAgent(activeAgent(1, "alice"))
		fx.runner.failCommit = errors.New("connection reset")

		if _, err := fx.service.CreateTicket(ctx, &agent, validInput); err == nil {
			t.Fatal("expected commit failure")
		}
		if len(fx.store.tickets) != 0 {
			t.Fatal("ticket leaked out of failed transaction")
		}
		if len(fx.store.audit) != 0 {
			t.Fatal("audit entry leaked out of failed transaction")
		}
	})
}

func TestFinalizeTicket(t *testing.T) {
	ctx := context.Background()

	seed := func(fx *lifecycleFixture, owner domain.Agent, status domain.TicketStatus) domain.Ticket {
		ticket := domain.Ticket{
			ClientName:    "Jane Doe",
			ContactMethod: domain.ContactMethodWhatsApp,
			Product:       "GNSS receiver",
			Problem:       "device does not power on",
			OwnerID:       owner.ID,
			Status:        status,
			OpenedAt:      testTime(0),
		}
		if status == domain.TicketStatusConcluded {
			closed := testTime(1)
			ticket.ClosedAt = &closed
		}
		return fx.store.addTicket(ticket)
	}

	t.Run("concludes ticket and stamps closed_at", func(t *testing.T) {
		fx := newLifecycleFixture()
		owner := fx.store.addAgent(activeAgent(1, "alice"))
		ticket := seed(fx, owner, domain.TicketStatusInProgress)

		result, err := fx.service.FinalizeTicket(ctx, &owner, ticket.ID, "replaced power supply")
		if err != nil {
			t.Fatalf("FinalizeTicket: %v", err)
		}
		if result.Status != domain.TicketStatusConcluded {
			t.Fatalf("status = %s, want %s", result.Status, domain.TicketStatusConcluded)
		}
		if result.ClosedAt == nil {
			t.Fatal("closed_at must be set on conclusion")
		}
		if result.Resolution != "replaced power supply" {
			t.Fatalf("resolution = %q", result.Resolution)
		}
		if got := len(fx.store.audit); got != 1 {
			t.Fatalf("audit entries = %d, want 1", got)
		}
		if fx.store.audit[0].Action != domain.AuditActionFinalized {
			t.Fatalf("audit action = %s", fx.store.audit[0].Action)
		}
	})

	t.Run("repeat finalize reports already finalized without changing anything", func(t *testing.T) {
		fx := newLifecycleFixture()
		owner := fx.store.addAgent(activeAgent(1, "alice"))
		ticket := seed(fx, owner, domain.TicketStatusInProgress)

		first, err := fx.service.FinalizeTicket(ctx, &owner, ticket.ID, "done")
		if err != nil {
			t.Fatalf("first finalize: %v", err)
		}
		_, err = fx.service.FinalizeTicket(ctx, &owner, ticket.ID, "done again")
		if !apperrors.IsAlreadyFinalized(err) {
			t.Fatalf("expected already finalized, got %v", err)
		}
		stored := fx.store.tickets[ticket.ID]
		if !stored.ClosedAt.Equal(*first.ClosedAt) {
			t.Fatal("closed_at changed on repeated finalize")
		}
		if stored.Resolution != "done" {
			t.Fatalf("resolution overwritten: %q", stored.Resolution)
		}
		if got := len(fx.store.audit); got != 1 {
			t.Fatalf("duplicate audit entry recorded: %d entries", got)
		}
	})

	t.Run("cancelled tickets cannot be finalized", func(t *testing.T) {
		fx := newLifecycleFixture()
		owner := fx.store.addAgent(activeAgent(1, "alice"))
		ticket := seed(fx, owner, domain.TicketStatusCancelled)

		_, err := fx.service.FinalizeTicket(ctx, &owner, ticket.ID, "")
		if !apperrors.IsInvalidState(err) {
			t.Fatalf("expected invalid state, got %v", err)
		}
	})

	t.Run("non-owner is rejected and state is untouched", func(t *testing.T) {
		fx := newLifecycleFixture()
		owner := fx.store.addAgent(activeAgent(1, "alice"))
		intruder := fx.store.addAgent(activeAgent(2, "bob"))
		ticket := seed(fx, owner, domain.TicketStatusInProgress)

		_, err := fx.service.FinalizeTicket(ctx, &intruder, ticket.ID, "hijack")
		if !apperrors.IsForbidden(err) {
			t.Fatalf("expected forbidden, got %v", err)
		}
		stored := fx.store.tickets[ticket.ID]
		if stored.Status != domain.TicketStatusInProgress || stored.ClosedAt != nil {
			t.Fatal("rejected finalize must not change the ticket")
		}
		if len(fx.store.audit) != 0 {
			t.Fatal("rejected finalize must not append audit entries")
		}
	})

	t.Run("unknown ticket reports not found", func(t *testing.T) {
		fx := newLifecycleFixture()
		owner := fx.store.addAgent(activeAgent(1, "alice"))

		_, err := fx.service.FinalizeTicket(ctx, &owner, 404, "")
		if !apperrors.IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestTransferTicket(t *testing.T) {
	ctx := context.Background()

	seedInProgress := func(fx *lifecycleFixture, owner domain.Agent) domain.Ticket {
		return fx.store.addTicket(domain.Ticket{
			ClientName:    "Jane Doe",
			ContactMethod: domain.ContactMethodWhatsApp,
			Product:       "GNSS receiver",
			Problem:       "device does not power on",
			OwnerID:       owner.ID,
			Status:        domain.TicketStatusInProgress,
			OpenedAt:      testTime(0),
		})
	}

	t.Run("reassigns owner, audits, and notifies in one step", func(t *testing.T) {
		fx := newLifecycleFixture()
		alice := fx.store.addAgent(activeAgent(1, "alice"))
		bob := fx.store.addAgent(activeAgent(2, "bob"))
		ticket := seedInProgress(fx, alice)

		result, err := fx.service.TransferTicket(ctx, &alice, ticket.ID, bob.ID, "field visit required")
		if err != nil {
			t.Fatalf("TransferTicket: %v", err)
		}
		if result.OwnerID != bob.ID {
			t.Fatalf("owner = %d, want %d", result.OwnerID, bob.ID)
		}
		if result.Status != domain.TicketStatusInProgress {
			t.Fatalf("status = %s, transfer must not close the ticket", result.Status)
		}
		if got := len(fx.store.audit); got != 1 {
			t.Fatalf("audit entries = %d, want exactly 1", got)
		}
		entry := fx.store.audit[0]
		if entry.Action != domain.AuditActionTransferred {
			t.Fatalf("audit action = %s", entry.Action)
		}
		if !strings.Contains(entry.Detail, "alice") || !strings.Contains(entry.Detail, "bob") || !strings.Contains(entry.Detail, "field visit required") {
			t.Fatalf("audit detail missing participants or reason: %q", entry.Detail)
		}
		if got := len(fx.store.notifications); got != 1 {
			t.Fatalf("notifications = %d, want exactly 1", got)
		}
		notification := fx.store.notifications[0]
		if notification.RecipientID != bob.ID {
			t.Fatalf("notification recipient = %d, want %d", notification.RecipientID, bob.ID)
		}
		if notification.Read {
			t.Fatal("new notification must start unread")
		}
		if !strings.Contains(notification.Body, "Jane Doe") {
			t.Fatalf("notification body missing client: %q", notification.Body)
		}
	})

	t.Run("blank reason is recorded as not informed", func(t *testing.T) {
		fx := newLifecycleFixture()
		alice := fx.store.addAgent(activeAgent(1, "alice"))
		bob := fx.store.addAgent(activeAgent(2, "bob"))
		ticket := seedInProgress(fx, alice)

		if _, err := fx.service.TransferTicket(ctx, &alice, ticket.ID, bob.ID, "   "); err != nil {
			t.Fatalf("TransferTicket: %v", err)
		}
		if !strings.Contains(fx.store.audit[0].Detail, "not informed") {
			t.Fatalf("audit detail = %q, want fallback reason", fx.store.audit[0].Detail)
		}
	})

	t.Run("previous owner loses the ticket after transfer", func(t *testing.T) {
		fx := newLifecycleFixture()
		alice := fx.store.addAgent(activeAgent(1, "alice"))
		bob := fx.store.addAgent(activeAgent(2, "bob"))
		carol := fx.store.addAgent(activeAgent(3, "carol"))
		ticket := seedInProgress(fx, alice)

		if _, err := fx.service.TransferTicket(ctx, &alice, ticket.ID, bob.ID, "handover"); err != nil {
			t.Fatalf("first transfer: %v", err)
		}
		_, err := fx.service.TransferTicket(ctx, &alice, ticket.ID, carol.ID, "second try")
		if !apperrors.IsForbidden(err) {
			t.Fatalf("stale owner: expected forbidden, got %v", err)
		}
		if _, err := fx.service.TransferTicket(ctx, &bob, ticket.ID, carol.ID, "onward"); err != nil {
			t.Fatalf("new owner transfer: %v", err)
		}
		if fx.store.tickets[ticket.ID].OwnerID != carol.ID {
			t.Fatalf("owner = %d, want %d", fx.store.tickets[ticket.ID].OwnerID, carol.ID)
		}
	})

	t.Run("rejects transfer to self", func(t *testing.T) {
		fx := newLifecycleFixture()
		alice := fx.store.addAgent(activeAgent(1, "alice"))
		ticket := seedInProgress(fx, alice)

		_, err := fx.service.TransferTicket(ctx, &alice, ticket.ID, alice.ID, "")
		if !apperrors.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects missing or inactive target", func(t *testing.T) {
		fx := newLifecycleFixture()
		alice := fx.store.addAgent(activeAgent(1, "alice"))
		inactive := activeAgent(2, "ghost")
		inactive.Active = false
		fx.store.addAgent(inactive)
		ticket := seedInProgress(fx, alice)

		if _, err := fx.service.TransferTicket(ctx, &alice, ticket.ID, 77, ""); !apperrors.IsValidation(err) {
			t.Fatalf("missing target: expected validation error, got %v", err)
		}
		if _, err := fx.service.TransferTicket(ctx, &alice, ticket.ID, inactive.ID, ""); !apperrors.IsValidation(err) {
			t.Fatalf("inactive target: expected validation error, got %v", err)
		}
		if fx.store.tickets[ticket.ID].OwnerID != alice.ID {
			t.Fatal("rejected transfer must not change ownership")
		}
		if len(fx.store.audit) != 0 || len(fx.store.notifications) != 0 {
			t.Fatal("rejected transfer must not persist side effects")
		}
	})

	t.Run("rejects transfer of concluded ticket", func(t *testing.T) {
		fx := newLifecycleFixture()
		alice := fx.store.addAgent(activeAgent(1, "alice"))
		bob := fx.store.addAgent(activeAgent(2, "bob"))
		ticket := seedInProgress(fx, alice)

		if _, err := fx.service.FinalizeTicket(ctx, &alice, ticket.ID, "done"); err != nil {
			t.Fatalf("finalize: %v", err)
		}
		_, err := fx.service.TransferTicket(ctx, &alice, ticket.ID, bob.ID, "")
		if !apperrors.IsInvalidState(err) {
			t.Fatalf("expected invalid state, got %v", err)
		}
	})

	t.Run("concurrent transfer loses on the version guard, winner's owner sticks", func(t *testing.T) {
		fx := newLifecycleFixture()
		alice := fx.store.addAgent(activeAgent(1, "alice"))
		bob := fx.store.addAgent(activeAgent(2, "bob"))
		carol := fx.store.addAgent(activeAgent(3, "carol"))
		ticket := seedInProgress(fx, alice)

		// Both transfers read the ticket in this state; the first to commit
		// bumps the version, the second must fail its guarded update.
		snapshot := fx.store.clone()

		if _, err := fx.service.TransferTicket(ctx, &alice, ticket.ID, bob.ID, "first"); err != nil {
			t.Fatalf("winning transfer: %v", err)
		}

		stale := NewLifecycleService(LifecycleDependencies{
			TxRunner:   &staleTxRunner{live: fx.store, snapshot: snapshot},
			TicketRepo: &memTicketRepo{fx.store},
			AuditRepo:  &memAuditRepo{fx.store},
			Gate:       NewAuthorizationGate(),
		})
		_, err := stale.TransferTicket(ctx, &alice, ticket.ID, carol.ID, "second")
		if !apperrors.IsConflict(err) {
			t.Fatalf("losing transfer: expected conflict, got %v", err)
		}
		if fx.store.tickets[ticket.ID].OwnerID != bob.ID {
			t.Fatalf("owner = %d, winner %d must stick", fx.store.tickets[ticket.ID].OwnerID, bob.ID)
		}
		if got := len(fx.store.audit); got != 1 {
			t.Fatalf("audit entries = %d, only the winning round may record one", got)
		}
		if got := len(fx.store.notifications); got != 1 {
			t.Fatalf("notifications = %d, only the winning round may notify", got)
		}
	})

	t.Run("commit failure discards ownership change, audit, and notification together", func(t *testing.T) {
		fx := newLifecycleFixture()
		alice := fx.store.addAgent(activeAgent(1, "alice"))
		bob := fx.store.addAgent(activeAgent(2, "bob"))
		ticket := seedInProgress(fx, alice)
		fx.runner.failCommit = errors.New("connection reset")

		if _, err := fx.service.TransferTicket(ctx, &alice, ticket.ID, bob.ID, "handover"); err == nil {
			t.Fatal("expected commit failure")
		}
		stored := fx.store.tickets[ticket.ID]
		if stored.OwnerID != alice.ID {
			t.Fatal("ownership change leaked out of failed transaction")
		}
		if len(fx.store.audit) != 0 || len(fx.store.notifications) != 0 {
			t.Fatal("side effects leaked out of failed transaction")
		}
	})
}

func TestListAuditEntries(t *testing.T) {
	ctx := context.Background()
	fx := newLifecycleFixture()
	alice := fx.store.addAgent(activeAgent(1, "alice"))
	bob := fx.store.addAgent(activeAgent(2, "bob"))

	ticket, err := fx.service.CreateTicket(ctx, &alice, CreateTicketInput{
		ClientName:    "Jane Doe",
		ContactMethod: domain.ContactMethodWhatsApp,
		Product:       "GNSS receiver",
		Problem:       "device does not power on",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := fx.service.TransferTicket(ctx, &alice, ticket.ID, bob.ID, "handover"); err != nil {
		t.Fatalf("TransferTicket: %v", err)
	}
	if _, err := fx.service.FinalizeTicket(ctx, &bob, ticket.ID, "resolved"); err != nil {
		t.Fatalf("FinalizeTicket: %v", err)
	}

	entries, err := fx.service.ListAuditEntries(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	wantActions := []domain.AuditAction{domain.AuditActionCreated, domain.AuditActionTransferred, domain.AuditActionFinalized}
	if len(entries) != len(wantActions) {
		t.Fatalf("entries = %d, want %d", len(entries), len(wantActions))
	}
	for i, want := range wantActions {
		if entries[i].Action != want {
			t.Fatalf("entry %d action = %s, want %s", i, entries[i].Action, want)
		}
	}

	if _, err := fx.service.ListAuditEntries(ctx, 404); !apperrors.IsNotFound(err) {
		t.Fatalf("unknown ticket: expected not found, got %v", err)
	}
}
