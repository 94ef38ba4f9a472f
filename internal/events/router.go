package events

import (
	"github.com/gin-gonic/gin"
)

func SetupEventRoutes(router *gin.RouterGroup, controller Controller) {
	// Public routes - anyone can browse the synced catalog
	publicEvents := router.Group("/events")
	{
		publicEvents.GET("", controller.GetAllEvents) // GET /api/v1/events - Browse active events
		publicEvents.GET("/:id", controller.GetEvent) // GET /api/v1/events/:id - Get event details
	}
}
