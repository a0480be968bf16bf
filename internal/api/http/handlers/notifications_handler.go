package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/hubgeo/atendimento-service/internal/api/dto"
	"github.com/hubgeo/atendimento-service/internal/auth"
	"github.com/hubgeo/atendimento-service/internal/domain"
	"github.com/hubgeo/atendimento-service/internal/service"
	apperrors "github.com/hubgeo/atendimento-service/pkg/util/errorutil"
)

// NotificationsHandler exposes the agent inbox endpoints.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// ListUnread GET /notifications/unread.
func (h *NotificationsHandler) ListUnread(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			return apperrors.NewValidationError("invalid limit", nil)
		}
		limit = parsed
	}
	items, err := h.notifications.ListUnread(c.UserContext(), agent, limit)
	if err != nil {
		return err
	}
	total, err := h.notifications.UnreadCount(c.UserContext(), agent)
	if err != nil {
		return err
	}
	resp := dto.UnreadNotificationsResponse{
		Items: make([]dto.NotificationResponse, 0, len(items)),
		Total: total,
	}
	for i := range items {
		resp.Items = append(resp.Items, notificationResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Acknowledge POST /notifications/:id/ack.
func (h *NotificationsHandler) Acknowledge(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	notificationID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.notifications.Acknowledge(c.UserContext(), agent, notificationID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"acknowledged": true}})
}

func notificationResponse(notification *domain.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:        notification.ID,
		TicketID:  notification.TicketID,
		Type:      notification.Type,
		Title:     notification.Title,
		Body:      notification.Body,
		Read:      notification.Read,
		CreatedAt: notification.CreatedAt,
	}
}
