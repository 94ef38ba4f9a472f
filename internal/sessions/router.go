package sessions

import (
	"seatflow/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupSessionRoutes(rg *gin.RouterGroup, controller *Controller) {
	sessions := rg.Group("/sessions")
	sessions.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleUser, middleware.RoleAdmin))
	{
		sessions.POST("", controller.StartSession)                  // POST /api/v1/sessions
		sessions.GET("/current", controller.GetCurrentSession)      // GET /api/v1/sessions/current
		sessions.PUT("/current/seats", controller.SetSeats)         // PUT /api/v1/sessions/current/seats
		sessions.PUT("/current/attendees", controller.SetAttendees) // PUT /api/v1/sessions/current/attendees
		sessions.POST("/current/renew", controller.RenewSession)    // POST /api/v1/sessions/current/renew
		sessions.DELETE("/current", controller.ClearSession)        // DELETE /api/v1/sessions/current
	}
}
