package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig

	// External collaborators
	Inventory InventoryConfig
	Proxy     ProxyConfig
	Kafka     KafkaConfig

	Session        SessionConfig
	Reconciliation ReconciliationConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	// Read-model cache TTL (event details, listings)
	CacheTTL time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled          bool
	WindowDuration   time.Duration
	DefaultRequests  int
	PublicRequests   int
	SessionRequests  int
	CheckoutRequests int
	AdminRequests    int
	HealthRequests   int
	WhitelistedIPs   []string
}

// InventoryConfig holds the external inventory API configuration
type InventoryConfig struct {
	BaseURL string
	Token   string
	// Lock, confirm and catalog calls
	Timeout time.Duration
}

// ProxyConfig holds the seat-state proxy configuration
type ProxyConfig struct {
	BaseURL  string
	BasePath string
	Timeout  time.Duration
	// Shared secret expected on pushed notifications
	WebhookToken string
	// "http" queries the proxy, "redis" reads the shared seat hash directly
	SeatSource string
	// Redis holding the external seat hashes when SeatSource is "redis"
	SeatRedisAddr     string
	SeatRedisPassword string
	SeatRedisDB       int
}

// KafkaConfig holds change-feed and sale-event configuration
type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	ChangeFeedTopics []string
	ConsumerGroupID  string
	ConsumerWorkers  int
	SaleEventsTopic  string
}

// SessionConfig holds purchase session configuration
type SessionConfig struct {
	TTL      time.Duration
	MaxSeats int
}

// ReconciliationConfig holds background job configuration
type ReconciliationConfig struct {
	Enabled          bool
	RetryInterval    time.Duration
	CatalogInterval  time.Duration
	SaleSyncInterval time.Duration
	MaxAttempts      int
	BatchSize        int
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 45*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "seatflow_db"),
			User:     getEnv("DB_USER", "seatflow_user"),
			Password: getEnv("DB_PASSWORD", "seatflow_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			CacheTTL: getDurationEnv("REDIS_CACHE_TTL", 10*time.Minute),
		},

		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
		},

		RateLimit: RateLimitConfig{
			Enabled:          getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:   getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:  getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:   getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 120),
			SessionRequests:  getIntEnv("RATE_LIMIT_SESSION_REQUESTS", 60),
			CheckoutRequests: getIntEnv("RATE_LIMIT_CHECKOUT_REQUESTS", 10),
			AdminRequests:    getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			HealthRequests:   getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 300),
			WhitelistedIPs:   getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		Inventory: InventoryConfig{
			BaseURL: getEnv("INVENTORY_URL", "http://localhost:8081"),
			Token:   getEnv("INVENTORY_TOKEN", ""),
			Timeout: getDurationEnv("INVENTORY_TIMEOUT", 30*time.Second),
		},

		Proxy: ProxyConfig{
			BaseURL:           getEnv("PROXY_URL", "http://localhost:8082"),
			BasePath:          getEnv("PROXY_BASE_PATH", "/api/proxy"),
			Timeout:           getDurationEnv("PROXY_TIMEOUT", 10*time.Second),
			WebhookToken:      getEnv("PROXY_WEBHOOK_TOKEN", ""),
			SeatSource:        getEnv("SEAT_SOURCE", "http"),
			SeatRedisAddr:     getEnv("SEAT_REDIS_ADDR", ""),
			SeatRedisPassword: getEnv("SEAT_REDIS_PASSWORD", ""),
			SeatRedisDB:       getIntEnv("SEAT_REDIS_DB", 0),
		},

		Kafka: KafkaConfig{
			Enabled:          getBoolEnv("KAFKA_ENABLED", false),
			Brokers:          getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			ChangeFeedTopics: getStringSliceEnv("KAFKA_CHANGE_FEED_TOPICS", []string{"eventos-actualizacion", "asientos-actualizacion"}),
			ConsumerGroupID:  getEnv("KAFKA_CONSUMER_GROUP_ID", "seatflow-reconciler"),
			ConsumerWorkers:  getIntEnv("KAFKA_CONSUMER_WORKERS", 2),
			SaleEventsTopic:  getEnv("KAFKA_SALE_EVENTS_TOPIC", "seatflow-sales"),
		},

		Session: SessionConfig{
			TTL:      getDurationEnv("SESSION_TTL", 30*time.Minute),
			MaxSeats: getIntEnv("SESSION_MAX_SEATS", 4),
		},

		Reconciliation: ReconciliationConfig{
			Enabled:          getBoolEnv("RECONCILIATION_ENABLED", true),
			RetryInterval:    getDurationEnv("RECONCILIATION_RETRY_INTERVAL", 5*time.Minute),
			CatalogInterval:  getDurationEnv("RECONCILIATION_CATALOG_INTERVAL", 30*time.Minute),
			SaleSyncInterval: getDurationEnv("RECONCILIATION_SALE_SYNC_INTERVAL", 15*time.Minute),
			MaxAttempts:      getIntEnv("RECONCILIATION_MAX_ATTEMPTS", 3),
			BatchSize:        getIntEnv("RECONCILIATION_BATCH_SIZE", 100),
		},

		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
