package notifications

import (
	"seatflow/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupNotificationRoutes registers the endpoints the proxy pushes change notifications to
func SetupNotificationRoutes(rg *gin.RouterGroup, controller *Controller, webhookToken string) {
	webhooks := rg.Group("/notifications")
	webhooks.Use(middleware.ProxyWebhookAuth(webhookToken))
	{
		webhooks.POST("/events", controller.ReceiveEventNotification) // POST /api/v1/notifications/events
		webhooks.POST("/seats", controller.ReceiveSeatNotification)   // POST /api/v1/notifications/seats
	}
}
