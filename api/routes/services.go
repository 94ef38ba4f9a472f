package routes

import (
	"strings"

	"seatflow/internal/events"
	"seatflow/internal/inventory"
	"seatflow/internal/notifications"
	"seatflow/internal/reconciliation"
	"seatflow/internal/sales"
	"seatflow/internal/seats"
	"seatflow/internal/sessions"
	"seatflow/internal/shared/config"
	"seatflow/internal/shared/database"
	"seatflow/pkg/cache"
	"seatflow/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Services is the wired application graph. The HTTP server and the ops CLI share it.
type Services struct {
	Events        events.Service
	Seats         seats.Service
	Sessions      sessions.Manager
	Sales         sales.Service
	Inventory     inventory.Client
	Notifications *notifications.Processor
	Jobs          *reconciliation.JobProcessor
}

// ServiceDeps carries the optional collaborators decided at startup
type ServiceDeps struct {
	// SeatRedis holds the external seat hashes; only used when SEAT_SOURCE=redis
	SeatRedis *redis.Client
	// Publisher announces confirmed sales; nil disables publishing
	Publisher sales.Publisher
}

// BuildServices wires every service from configuration and open connections
func BuildServices(cfg *config.Config, db *database.DB, deps ServiceDeps) *Services {
	eventService := events.NewService(events.NewRepository(db.GetPostgreSQL()))
	if db.Redis != nil {
		eventService.SetCacheService(cache.NewService(db.Redis))
	}

	gateway := newSeatGateway(cfg, deps.SeatRedis)
	inventoryClient := inventory.NewClient(cfg.Inventory)

	sessionManager := sessions.NewManager(
		sessions.NewRedisStore(db.Redis),
		eventService,
		sessions.WithTTL(cfg.Session.TTL),
		sessions.WithMaxSeats(cfg.Session.MaxSeats),
	)

	seatService := seats.NewService(eventService, gateway)
	seatService.SetSelectionLookup(sessionManager)

	saleService := sales.NewService(
		sales.NewRepository(db.GetPostgreSQL()),
		sessionManager,
		eventService,
		gateway,
		inventoryClient,
		deps.Publisher,
	)

	catalogSyncer := reconciliation.NewCatalogSyncer(inventoryClient, eventService)
	jobConfig := reconciliation.JobConfigFromConfig(cfg.Reconciliation)
	jobs := reconciliation.NewJobProcessor(
		saleService,
		catalogSyncer,
		reconciliation.NewSaleSyncer(inventoryClient, saleService, jobConfig.BatchSize),
		jobConfig,
	)

	return &Services{
		Events:        eventService,
		Seats:         seatService,
		Sessions:      sessionManager,
		Sales:         saleService,
		Inventory:     inventoryClient,
		Notifications: notifications.NewProcessor(reconciliation.NewNotificationHandler(catalogSyncer, eventService)),
		Jobs:          jobs,
	}
}

func newSeatGateway(cfg *config.Config, seatRedis *redis.Client) seats.Gateway {
	if strings.EqualFold(cfg.Proxy.SeatSource, "redis") {
		if seatRedis != nil {
			return seats.NewRedisGateway(seatRedis)
		}
		logger.GetDefault().Warn("SEAT_SOURCE=redis without SEAT_REDIS_ADDR, falling back to the proxy")
	}
	return seats.NewProxyGateway(cfg.Proxy)
}
