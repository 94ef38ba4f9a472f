package seats

import (
	"seatflow/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupSeatRoutes(rg *gin.RouterGroup, controller *Controller) {
	// Public, but a bearer token marks the caller's own selection on the map
	eventSeats := rg.Group("/events/:id/seats")
	eventSeats.Use(middleware.OptionalAuth())
	{
		eventSeats.GET("", controller.GetSeatMap)             // GET /api/v1/events/:id/seats
		eventSeats.GET("/summary", controller.GetSeatSummary) // GET /api/v1/events/:id/seats/summary
	}
}
