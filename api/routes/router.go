// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"seatflow/internal/events"
	"seatflow/internal/notifications"
	"seatflow/internal/reconciliation"
	"seatflow/internal/sales"
	"seatflow/internal/seats"
	"seatflow/internal/sessions"
	"seatflow/internal/shared/config"
	"seatflow/internal/shared/database"

	"github.com/gin-gonic/gin"
)

const serviceName = "seatflow"

// Router holds all route dependencies
type Router struct {
	config   *config.Config
	db       *database.DB
	services *Services
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, services *Services) *Router {
	return &Router{
		config:   cfg,
		db:       db,
		services: services,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupEventRoutes(api)
		r.setupSessionRoutes(api)
		r.setupSaleRoutes(api)
		r.setupNotificationRoutes(api)
		r.setupAdminRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   serviceName,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   serviceName,
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	// The seat proxy is a dependency we degrade around, so it is reported here and not in /health
	engine.GET("/status", func(c *gin.Context) {
		seatSource := "up"
		if err := r.services.Seats.GatewayHealth(c.Request.Context()); err != nil {
			seatSource = "degraded"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":         "operational",
			"api_version":    r.config.APIVersion,
			"seat_source":    seatSource,
			"reconciliation": r.services.Jobs.GetJobStatus(),
			"timestamp":      time.Now(),
		})
	})
}

// setupEventRoutes configures the synced catalog and seat map routes
func (r *Router) setupEventRoutes(rg *gin.RouterGroup) {
	events.SetupEventRoutes(rg, events.NewController(r.services.Events))
	seats.SetupSeatRoutes(rg, seats.NewController(r.services.Seats))
}

// setupSessionRoutes configures purchase session routes
func (r *Router) setupSessionRoutes(rg *gin.RouterGroup) {
	sessions.SetupSessionRoutes(rg, sessions.NewController(r.services.Sessions))
}

// setupSaleRoutes configures seat locking, checkout and sale history routes
func (r *Router) setupSaleRoutes(rg *gin.RouterGroup) {
	sales.SetupSaleRoutes(rg, sales.NewController(r.services.Sales))
}

// setupNotificationRoutes configures the webhooks the seat proxy pushes to
func (r *Router) setupNotificationRoutes(rg *gin.RouterGroup) {
	controller := notifications.NewController(r.services.Notifications)
	notifications.SetupNotificationRoutes(rg, controller, r.config.Proxy.WebhookToken)
}

// setupAdminRoutes configures sale administration and reconciliation triggers
func (r *Router) setupAdminRoutes(rg *gin.RouterGroup) {
	sales.SetupAdminSaleRoutes(rg, sales.NewController(r.services.Sales))
	reconciliation.SetupAdminRoutes(rg, reconciliation.NewController(r.services.Jobs))
}
