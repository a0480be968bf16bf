package worker

import (
	"github.com/hubgeo/atendimento-service/internal/events"
	"github.com/hubgeo/atendimento-service/internal/service"
)

// StartNotificationWorker subscribes notification side channels to
// lifecycle events.
func StartNotificationWorker(notificationService *service.NotificationService, dispatcher events.Dispatcher) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers(dispatcher)
}
