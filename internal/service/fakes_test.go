package service

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hubgeo/atendimento-service/internal/domain"
	"github.com/hubgeo/atendimento-service/internal/repository"
	apperrors "github.com/hubgeo/atendimento-service/pkg/util/errorutil"
)

// testTime maps a monotonic tick to a deterministic timestamp so ordering
// assertions do not depend on the wall clock.
func testTime(tick int64) time.Time {
	return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(tick) * time.Second)
}

// memStore is an in-memory stand-in for the database. The transaction
// runner below works on a snapshot and copies it back on commit, so a
// failed transaction leaves the committed state untouched.
type memStore struct {
	tickets       map[int64]domain.Ticket
	agents        map[int64]domain.Agent
	audit         []domain.AuditEntry
	notifications []domain.Notification

	nextTicketID       int64
	nextAuditID        int64
	nextNotificationID int64

	clock clock
}

type clock struct{ tick int64 }

func (c *clock) now() int64 {
	c.tick++
	return c.tick
}

func newMemStore() *memStore {
	return &memStore{
		tickets:            map[int64]domain.Ticket{},
		agents:             map[int64]domain.Agent{},
		nextTicketID:       1,
		nextAuditID:        1,
		nextNotificationID: 1,
	}
}

func (s *memStore) clone() *memStore {
	dup := &memStore{
		tickets:            make(map[int64]domain.Ticket, len(s.tickets)),
		agents:             make(map[int64]domain.Agent, len(s.agents)),
		audit:              append([]domain.AuditEntry(nil), s.audit...),
		notifications:      append([]domain.Notification(nil), s.notifications...),
		nextTicketID:       s.nextTicketID,
		nextAuditID:        s.nextAuditID,
		nextNotificationID: s.nextNotificationID,
		clock:              s.clock,
	}
	for id, t := range s.tickets {
		dup.tickets[id] = t
	}
	for id, a := range s.agents {
		dup.agents[id] = a
	}
	return dup
}

func (s *memStore) addAgent(agent domain.Agent) domain.Agent {
	s.agents[agent.ID] = agent
	return agent
}

func (s *memStore) addTicket(ticket domain.Ticket) domain.Ticket {
	if ticket.ID == 0 {
		ticket.ID = s.nextTicketID
		s.nextTicketID++
	} else if ticket.ID >= s.nextTicketID {
		s.nextTicketID = ticket.ID + 1
	}
	if ticket.Version == 0 {
		ticket.Version = 1
	}
	s.tickets[ticket.ID] = ticket
	return ticket
}

// memUnitOfWork binds fake repositories to one store snapshot.
type memUnitOfWork struct {
	store *memStore
}

func (u *memUnitOfWork) Tickets() repository.TicketRepository { return &memTicketRepo{u.store} }
func (u *memUnitOfWork) Agents() repository.AgentRepository   { return &memAgentRepo{u.store} }
func (u *memUnitOfWork) Audit() repository.AuditRepository    { return &memAuditRepo{u.store} }
func (u *memUnitOfWork) Notifications() repository.NotificationRepository {
	return &memNotificationRepo{u.store}
}

// memTxRunner commits the snapshot only when fn succeeds.
type memTxRunner struct {
	store *memStore

	// failCommit forces the commit itself to fail after fn ran, so tests
	// can assert nothing leaked out of a broken transaction.
	failCommit error
}

func (r *memTxRunner) InTx(ctx context.Context, fn func(ctx context.Context, uow repository.UnitOfWork) error) error {
	staged := r.store.clone()
	if err := fn(ctx, &memUnitOfWork{store: staged}); err != nil {
		return err
	}
	if r.failCommit != nil {
		return apperrors.NewInternalError(r.failCommit)
	}
	*r.store = *staged
	return nil
}

// staleTxRunner replays a transaction whose reads come from a snapshot
// taken before another transition committed. The version guard still
// checks the live store, so the stale writer must lose exactly the way a
// stale UPDATE loses against the database.
type staleTxRunner struct {
	live     *memStore
	snapshot *memStore
}

func (r *staleTxRunner) InTx(ctx context.Context, fn func(ctx context.Context, uow repository.UnitOfWork) error) error {
	staged := r.snapshot.clone()
	uow := &staleUnitOfWork{
		memUnitOfWork: memUnitOfWork{store: staged},
		live:          r.live,
	}
	if err := fn(ctx, uow); err != nil {
		return err
	}
	*r.live = *staged
	return nil
}

type staleUnitOfWork struct {
	memUnitOfWork
	live *memStore
}

func (u *staleUnitOfWork) Tickets() repository.TicketRepository {
	return &staleTicketRepo{memTicketRepo{u.store}, u.live}
}

type staleTicketRepo struct {
	memTicketRepo
	live *memStore
}

func (r *staleTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	stored, ok := r.live.tickets[ticket.ID]
	if !ok || stored.Version != ticket.Version {
		return apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticket.ID})
	}
	return r.memTicketRepo.Update(ctx, ticket)
}

type memTicketRepo struct {
	store *memStore
}

func (r *memTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	ticket.Version = 1
	if ticket.OpenedAt.IsZero() {
		ticket.OpenedAt = testTime(r.store.clock.now())
	}
	*ticket = r.store.addTicket(*ticket)
	return nil
}

func (r *memTicketRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *memTicketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *memTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	stored, ok := r.store.tickets[ticket.ID]
	if !ok || stored.Version != ticket.Version {
		return apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticket.ID})
	}
	ticket.Version++
	r.store.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	out := []domain.Ticket{}
	for _, ticket := range r.store.tickets {
		if filter.OwnerID != nil && ticket.OwnerID != *filter.OwnerID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if ticket.Status == status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memAgentRepo struct {
	store *memStore
}

func (r *memAgentRepo) Create(ctx context.Context, agent *domain.Agent) error {
	if agent.ID == 0 {
		for id := range r.store.agents {
			if id >= agent.ID {
				agent.ID = id
			}
		}
		agent.ID++
	}
	agent.CreatedAt = testTime(r.store.clock.now())
	r.store.agents[agent.ID] = *agent
	return nil
}

func (r *memAgentRepo) Update(ctx context.Context, agent *domain.Agent) error {
	if _, ok := r.store.agents[agent.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.store.agents[agent.ID] = *agent
	return nil
}

func (r *memAgentRepo) GetByID(ctx context.Context, id int64) (*domain.Agent, error) {
	agent, ok := r.store.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &agent, nil
}

func (r *memAgentRepo) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	for _, agent := range r.store.agents {
		if agent.Email == email {
			found := agent
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memAgentRepo) List(ctx context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	out := []domain.Agent{}
	for _, agent := range r.store.agents {
		if filter.Role != nil && agent.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && agent.Active != *filter.Active {
			continue
		}
		out = append(out, agent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memAuditRepo struct {
	store *memStore
}

func (r *memAuditRepo) Append(ctx context.Context, entry *domain.AuditEntry) error {
	entry.ID = r.store.nextAuditID
	r.store.nextAuditID++
	entry.CreatedAt = testTime(r.store.clock.now())
	r.store.audit = append(r.store.audit, *entry)
	return nil
}

func (r *memAuditRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.AuditEntry, error) {
	out := []domain.AuditEntry{}
	for _, entry := range r.store.audit {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type memNotificationRepo struct {
	store *memStore
}

func (r *memNotificationRepo) Enqueue(ctx context.Context, notification *domain.Notification) error {
	notification.ID = r.store.nextNotificationID
	r.store.nextNotificationID++
	notification.CreatedAt = testTime(r.store.clock.now())
	r.store.notifications = append(r.store.notifications, *notification)
	return nil
}

func (r *memNotificationRepo) ListUnread(ctx context.Context, recipientID int64, limit int) ([]domain.Notification, error) {
	out := []domain.Notification{}
	for i := len(r.store.notifications) - 1; i >= 0; i-- {
		notification := r.store.notifications[i]
		if notification.RecipientID != recipientID || notification.Read {
			continue
		}
		out = append(out, notification)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memNotificationRepo) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	var count int64
	for _, notification := range r.store.notifications {
		if notification.RecipientID == recipientID && !notification.Read {
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) Acknowledge(ctx context.Context, id, recipientID int64) error {
	for i := range r.store.notifications {
		if r.store.notifications[i].ID == id && r.store.notifications[i].RecipientID == recipientID {
			r.store.notifications[i].Read = true
			return nil
		}
	}
	return pgx.ErrNoRows
}
