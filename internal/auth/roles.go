package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hubgeo/atendimento-service/internal/domain"
	apperrors "github.com/hubgeo/atendimento-service/pkg/util/errorutil"
)

// RequireAdmin ensures the authenticated agent has the ADMIN role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agent, ok := AgentFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if agent.Role != domain.AgentRoleAdmin {
			return apperrors.NewForbidden("admin role required")
		}
		return c.Next()
	}
}
