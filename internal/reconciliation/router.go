package reconciliation

import (
	"seatflow/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupAdminRoutes(rg *gin.RouterGroup, controller *Controller) {
	admin := rg.Group("/admin")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		admin.POST("/sync/catalog", controller.SyncCatalog)            // POST /api/v1/admin/sync/catalog
		admin.POST("/sync/events/:externalId", controller.SyncEvent)   // POST /api/v1/admin/sync/events/:externalId
		admin.POST("/reconciliation/retry", controller.RetryPending)   // POST /api/v1/admin/reconciliation/retry
		admin.POST("/reconciliation/sales-sync", controller.SyncSales) // POST /api/v1/admin/reconciliation/sales-sync
		admin.GET("/reconciliation/status", controller.GetStatus)      // GET /api/v1/admin/reconciliation/status
	}
}
