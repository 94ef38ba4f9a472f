package sales

import (
	"seatflow/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupSaleRoutes(rg *gin.RouterGroup, controller *Controller) {
	authenticated := []gin.HandlerFunc{middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleUser, middleware.RoleAdmin)}

	// Locking lives on the session resource but talks to the inventory
	lock := rg.Group("/sessions/current")
	lock.Use(authenticated...)
	{
		lock.POST("/lock", controller.LockSeats) // POST /api/v1/sessions/current/lock
	}

	userSales := rg.Group("/sales")
	userSales.Use(authenticated...)
	{
		userSales.POST("/checkout", controller.Checkout) // POST /api/v1/sales/checkout
		userSales.GET("", controller.ListSales)          // GET /api/v1/sales?outcome=&offset=&limit=
		userSales.GET("/:id", controller.GetSale)        // GET /api/v1/sales/:id
	}
}

func SetupAdminSaleRoutes(rg *gin.RouterGroup, controller *Controller) {
	adminSales := rg.Group("/admin/sales")
	adminSales.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		adminSales.GET("", controller.ListAllSales)         // GET /api/v1/admin/sales?outcome=pending
		adminSales.POST("/:id/close", controller.CloseSale) // POST /api/v1/admin/sales/:id/close
	}
}
