package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seatflow/api/routes"
	"seatflow/internal/notifications"
	"seatflow/internal/sales"
	"seatflow/internal/shared/config"
	"seatflow/internal/shared/database"
	"seatflow/pkg/logger"
	"seatflow/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load environment variables
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		// Check if we're in production/container mode
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	// Load config
	cfg := config.Load()

	// Set Gin mode (debug/release)
	gin.SetMode(cfg.GinMode)

	// Initialize DB
	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect:", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Seat hashes may live in a separate Redis owned by the inventory
	seatRedis, err := database.InitSeatRedis(cfg)
	if err != nil {
		appLogger.Error("Failed to connect to seat Redis, falling back to the proxy", slog.Any("error", err))
	}
	if seatRedis != nil {
		defer seatRedis.Close()
	}

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:          cfg.RateLimit.Enabled,
			WindowDuration:   cfg.RateLimit.WindowDuration,
			DefaultRequests:  cfg.RateLimit.DefaultRequests,
			PublicRequests:   cfg.RateLimit.PublicRequests,
			SessionRequests:  cfg.RateLimit.SessionRequests,
			CheckoutRequests: cfg.RateLimit.CheckoutRequests,
			AdminRequests:    cfg.RateLimit.AdminRequests,
			HealthRequests:   cfg.RateLimit.HealthRequests,
			WhitelistedIPs:   cfg.RateLimit.WhitelistedIPs,
		}

		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), rateLimiterConfig)
		appLogger.Info("Rate limiter initialized",
			slog.Bool("enabled", cfg.RateLimit.Enabled),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Sale events go to Kafka only when it is enabled
	var publisher sales.Publisher
	if cfg.Kafka.Enabled {
		producer, err := notifications.NewSaleEventProducer(notifications.ProducerConfigFromKafka(cfg.Kafka))
		if err != nil {
			appLogger.Error("Failed to initialize sale event producer", slog.Any("error", err))
		} else {
			publisher = producer
			defer producer.Close()
		}
	}

	services := routes.BuildServices(cfg, db, routes.ServiceDeps{
		SeatRedis: seatRedis,
		Publisher: publisher,
	})

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	defer backgroundCancel()

	// Change feed from Kafka; webhooks work regardless
	if cfg.Kafka.Enabled {
		consumer, err := notifications.NewKafkaChangeFeedConsumer(notifications.ConsumerConfigFromKafka(cfg.Kafka), services.Notifications)
		if err != nil {
			appLogger.Error("Failed to initialize change-feed consumer", slog.Any("error", err))
			appLogger.Info("Continuing without Kafka - the catalog sync job still repairs drift")
		} else {
			if err := consumer.StartConsumers(backgroundCtx, cfg.Kafka.ConsumerWorkers); err != nil {
				appLogger.Error("Failed to start change-feed consumer", slog.Any("error", err))
			}
			defer func() {
				appLogger.Info("Stopping change-feed consumer...")
				if err := consumer.Stop(); err != nil {
					appLogger.Error("Error stopping change-feed consumer", slog.Any("error", err))
				}
			}()
		}
	}

	if cfg.Reconciliation.Enabled {
		services.Jobs.Start(backgroundCtx)
		defer services.Jobs.Stop()
	} else {
		appLogger.Info("Reconciliation jobs disabled")
	}

	// Setup router with rate limiter
	router := setupRouter(cfg, db, services, rateLimiter)

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_status", fmt.Sprintf("http://localhost:%s%s/status", cfg.Port, cfg.GetAPIBasePath())),
			slog.String("version", cfg.APIVersion),
			slog.Bool("redis_cache", (db.Redis != nil)),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
			slog.Bool("kafka", cfg.Kafka.Enabled),
			slog.String("seat_source", cfg.Proxy.SeatSource),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(cfg *config.Config, db *database.DB, services *routes.Services, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	// Built-in middleware: logs requests + recovers from panics
	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // allow every origin dynamically
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Proxy-Token"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Global rate limiting middleware (applied to all routes)
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	// Initialize and setup routes
	appRouter := routes.NewRouter(cfg, db, services)
	appRouter.SetupRoutes(engine)

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}
