package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hubgeo/atendimento-service/internal/api/dto"
	"github.com/hubgeo/atendimento-service/internal/auth"
	"github.com/hubgeo/atendimento-service/internal/domain"
	"github.com/hubgeo/atendimento-service/internal/repository"
	"github.com/hubgeo/atendimento-service/internal/service"
	apperrors "github.com/hubgeo/atendimento-service/pkg/util/errorutil"
)

// AgentsHandler exposes the admin-only agent management endpoints.
type AgentsHandler struct {
	agents *service.AgentService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agents *service.AgentService) *AgentsHandler {
	return &AgentsHandler{agents: agents}
}

// ListAgents GET /agents.
func (h *AgentsHandler) ListAgents(c *fiber.Ctx) error {
	actor, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	filter := repository.AgentFilter{}
	if roleStr := c.Query("role"); roleStr != "" {
		role := domain.AgentRole(strings.ToUpper(roleStr))
		filter.Role = &role
	}
	if activeStr := c.Query("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			return apperrors.NewValidationError("invalid active filter", nil)
		}
		filter.Active = &active
	}
	agents, err := h.agents.ListAgents(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, agentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateAgent POST /agents.
func (h *AgentsHandler) CreateAgent(c *fiber.Ctx) error {
	actor, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, err := h.agents.CreateAgent(c.UserContext(), actor, req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": agentResponse(agent)})
}

// ToggleActive POST /agents/:id/toggle.
func (h *AgentsHandler) ToggleActive(c *fiber.Ctx) error {
	actor, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	agentID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	agent, err := h.agents.ToggleActive(c.UserContext(), actor, agentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}
