package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hubgeo/atendimento-service/internal/auth"
	"github.com/hubgeo/atendimento-service/internal/config"
	"github.com/hubgeo/atendimento-service/internal/domain"
	"github.com/hubgeo/atendimento-service/internal/repository"
	apperrors "github.com/hubgeo/atendimento-service/pkg/util/errorutil"
)

const pgUniqueViolation = "23505"

// AgentService manages agent accounts. All operations are admin-only; there
// is no delete path because tickets keep referencing their historic owners.
type AgentService struct {
	agents     repository.AgentRepository
	bcryptCost int
}

// NewAgentService constructs the service.
func NewAgentService(cfg config.Config, agents repository.AgentRepository) *AgentService {
	return &AgentService{
		agents:     agents,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

func requireAdmin(actor *domain.Agent) error {
	if actor == nil || actor.Role != domain.AgentRoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// ListAgents returns agents matching the filter.
func (s *AgentService) ListAgents(ctx context.Context, actor *domain.Agent, filter repository.AgentFilter) ([]domain.Agent, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	agents, err := s.agents.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agents, nil
}

// CreateAgent registers a new agent account.
func (s *AgentService) CreateAgent(ctx context.Context, actor *domain.Agent, name, email, password string, role domain.AgentRole) (*domain.Agent, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email required", nil)
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.NewValidationError("password must have at least 6 characters", nil)
	}
	if role != domain.AgentRoleAdmin && role != domain.AgentRoleAgent {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}

	if _, err := s.agents.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already in use", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	agent := &domain.Agent{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		// The email check above races with concurrent creates; the UNIQUE
		// constraint on agents.email is the authoritative guard.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, apperrors.NewConflict("email already in use", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// ToggleActive flips an agent's active flag. Admins cannot deactivate their
// own account.
func (s *AgentService) ToggleActive(ctx context.Context, actor *domain.Agent, agentID int64) (*domain.Agent, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if actor.ID == agentID {
		return nil, apperrors.NewValidationError("you cannot deactivate your own account", nil)
	}

	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return nil, apperrors.MapError(err)
	}
	agent.Active = !agent.Active
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}
