package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/hubgeo/atendimento-service/internal/config"
	"github.com/hubgeo/atendimento-service/internal/domain"
	"github.com/hubgeo/atendimento-service/internal/events"
	"github.com/hubgeo/atendimento-service/internal/persistence"
	"github.com/hubgeo/atendimento-service/internal/repository"
	apperrors "github.com/hubgeo/atendimento-service/pkg/util/errorutil"
)

const maxUnreadPageSize = 100

// NotificationService serves the per-agent notification outbox and runs the
// post-commit side channels (cache invalidation, email/webhook stubs).
// Enqueueing is reserved to the lifecycle engine.
type NotificationService struct {
	notifications repository.NotificationRepository
	cache         *persistence.Redis
	logger        *zap.Logger
	cfg           config.NotificationConfig
}

// NewNotificationService creates the service. cache may be nil.
func NewNotificationService(notifications repository.NotificationRepository, cache *persistence.Redis, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: notifications,
		cache:         cache,
		logger:        logger,
		cfg:           cfg,
	}
}

// ListUnread returns the agent's unread notifications, most recent first.
func (n *NotificationService) ListUnread(ctx context.Context, agent *domain.Agent, limit int) ([]domain.Notification, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > maxUnreadPageSize {
		limit = maxUnreadPageSize
	}
	result, err := n.notifications.ListUnread(ctx, agent.ID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// UnreadCount returns the number of unread notifications, served from the
// redis counter cache when available.
func (n *NotificationService) UnreadCount(ctx context.Context, agent *domain.Agent) (int64, error) {
	if agent == nil {
		return 0, apperrors.NewUnauthorized("agent required")
	}
	key := unreadCountKey(agent.ID)
	if n.cache.Available() {
		if cached, err := n.cache.Client.Get(ctx, key).Int64(); err == nil {
			return cached, nil
		}
	}
	count, err := n.notifications.CountUnread(ctx, agent.ID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if n.cache.Available() {
		if err := n.cache.Client.Set(ctx, key, count, n.cfg.UnreadCacheTTL()).Err(); err != nil {
			n.logger.Debug("unread count cache write failed", zap.Int64("agent_id", agent.ID), zap.Error(err))
		}
	}
	return count, nil
}

// Acknowledge marks one notification read. A notification that does not
// exist or belongs to someone else reports not-found either way.
func (n *NotificationService) Acknowledge(ctx context.Context, agent *domain.Agent, notificationID int64) error {
	if agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if err := n.notifications.Acknowledge(ctx, notificationID, agent.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": notificationID})
		}
		return apperrors.MapError(err)
	}
	n.invalidateUnreadCount(ctx, agent.ID)
	return nil
}

// RegisterHandlers subscribes the side channels to lifecycle events.
func (n *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketTransferred, n.handleTicketTransferred)
	dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	dispatcher.Subscribe(events.EventTicketFinalized, n.handleTicketFinalized)
}

func (n *NotificationService) handleTicketTransferred(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketTransferred", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.TicketTransferredPayload); ok {
		n.invalidateUnreadCount(ctx, payload.ToAgentID)
	}
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketFinalized(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketFinalized", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) invalidateUnreadCount(ctx context.Context, agentID int64) {
	if !n.cache.Available() {
		return
	}
	if err := n.cache.Client.Del(ctx, unreadCountKey(agentID)).Err(); err != nil {
		n.logger.Debug("unread count cache invalidation failed", zap.Int64("agent_id", agentID), zap.Error(err))
	}
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func unreadCountKey(agentID int64) string {
	return fmt.Sprintf("notifications:unread:%d", agentID)
}
