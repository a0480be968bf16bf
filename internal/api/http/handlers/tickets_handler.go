package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hubgeo/atendimento-service/internal/api/dto"
	"github.com/hubgeo/atendimento-service/internal/auth"
	"github.com/hubgeo/atendimento-service/internal/domain"
	"github.com/hubgeo/atendimento-service/internal/repository"
	"github.com/hubgeo/atendimento-service/internal/service"
	apperrors "github.com/hubgeo/atendimento-service/pkg/util/errorutil"
)

// TicketsHandler exposes the ticket lifecycle endpoints.
type TicketsHandler struct {
	lifecycle *service.LifecycleService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.LifecycleService) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.lifecycle.CreateTicket(c.UserContext(), agent, service.CreateTicketInput{
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientContact: req.ClientContact,
		ContactMethod: req.ContactMethod,
		Product:       req.Product,
		Brand:         req.Brand,
		Problem:       req.Problem,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	if _, ok := auth.AgentFromContext(c); !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	tickets, err := h.lifecycle.ListTickets(c.UserContext(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	if _, ok := auth.AgentFromContext(c); !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	ticketID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.lifecycle.GetTicket(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	entries, err := h.lifecycle.ListAuditEntries(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetailResponse(ticket, entries)})
}

// FinalizeTicket POST /tickets/:id/finalize.
func (h *TicketsHandler) FinalizeTicket(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	ticketID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.FinalizeTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.FinalizeTicket(c.UserContext(), agent, ticketID, req.Resolution)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// TransferTicket POST /tickets/:id/transfer.
func (h *TicketsHandler) TransferTicket(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	ticketID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.TransferTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.NewOwnerID == 0 {
		return apperrors.NewValidationError("new_owner_id required", nil)
	}
	ticket, err := h.lifecycle.TransferTicket(c.UserContext(), agent, ticketID, req.NewOwnerID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

func parseID(c *fiber.Ctx, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", map[string]any{"param": param})
	}
	return id, nil
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if product := c.Query("product"); product != "" {
		filter.Product = &product
	}
	if brand := c.Query("brand"); brand != "" {
		filter.Brand = &brand
	}
	if ownerStr := c.Query("owner_id"); ownerStr != "" {
		if ownerID, err := strconv.ParseInt(ownerStr, 10, 64); err == nil {
			filter.OwnerID = &ownerID
		}
	}
	if from := parseTime(c.Query("opened_from")); from != nil {
		filter.OpenedFrom = from
	}
	if to := parseTime(c.Query("opened_to")); to != nil {
		filter.OpenedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:            ticket.ID,
		ClientName:    ticket.ClientName,
		ClientEmail:   ticket.ClientEmail,
		ClientContact: ticket.ClientContact,
		ContactMethod: ticket.ContactMethod,
		Product:       ticket.Product,
		Brand:         ticket.Brand,
		Problem:       ticket.Problem,
		Resolution:    ticket.Resolution,
		OwnerID:       ticket.OwnerID,
		Status:        ticket.Status,
		OpenedAt:      ticket.OpenedAt,
		ClosedAt:      ticket.ClosedAt,
	}
}

func ticketDetailResponse(ticket *domain.Ticket, entries []domain.AuditEntry) dto.TicketDetailResponse {
	auditResp := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		auditResp = append(auditResp, dto.AuditEntryResponse{
			ID:        entry.ID,
			AgentID:   entry.AgentID,
			Action:    entry.Action,
			Detail:    entry.Detail,
			CreatedAt: entry.CreatedAt,
		})
	}
	return dto.TicketDetailResponse{
		TicketResponse: ticketResponse(ticket),
		AuditEntries:   auditResp,
	}
}
