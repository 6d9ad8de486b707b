package worker

import (
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/service"
)

// StartNotificationWorker registers the event subscribers: notifications and
// statistics cache invalidation.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, stats *service.StatisticsService) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if stats != nil {
		stats.RegisterHandlers(dispatcher)
	}
}
