package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hubgeo/atendimento-service/internal/api/http/handlers"
	"github.com/hubgeo/atendimento-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	Agents         *handlers.AgentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/auth/password/change", cfg.Auth.ChangePassword)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/finalize", cfg.Tickets.FinalizeTicket)
	tickets.Post("/:id/transfer", cfg.Tickets.TransferTicket)

	notifications := protected.Group("/notifications")
	notifications.Get("/unread", cfg.Notifications.ListUnread)
	notifications.Post("/:id/ack", cfg.Notifications.Acknowledge)

	agents := protected.Group("/agents", auth.RequireAdmin())
	agents.Get("", cfg.Agents.ListAgents)
	agents.Post("", cfg.Agents.CreateAgent)
	agents.Post("/:id/toggle", cfg.Agents.ToggleActive)
}
