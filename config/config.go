package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL string

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string

	// RabbitMQ activity feed; empty disables it
	AMQPURL string

	// Upstream services
	EventAPIURL     string
	PaymentAPIURL   string
	CheckInAPIURL   string
	UpstreamToken   string
	UpstreamHMACKey string
	UpstreamTimeout time.Duration

	// Console behaviour
	PageSize        int
	CatalogCacheTTL time.Duration
	CheckInLockTTL  time.Duration
	// AdminCollection is also read by the migrations that create the
	// collection and the console_audit access rule.
	AdminCollection    string
	RateLimitPerMinute int

	// Monitoring
	EnableMetrics          bool
	MetricsCollectInterval time.Duration
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory when one exists. Variables already set win.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "ticket-console"),

		// RabbitMQ
		AMQPURL: getEnv("AMQP_URL", ""),

		// Upstream
		EventAPIURL:     getEnv("EVENT_API_URL", "http://localhost:3000/api/events"),
		PaymentAPIURL:   getEnv("PAYMENT_API_URL", "http://localhost:3000/api/payments"),
		CheckInAPIURL:   getEnv("CHECKIN_API_URL", "http://localhost:3000/api/checkins"),
		UpstreamToken:   getEnv("UPSTREAM_TOKEN", ""),
		UpstreamHMACKey: getEnv("UPSTREAM_HMAC_KEY", ""),
		UpstreamTimeout: getEnvAsDuration("UPSTREAM_TIMEOUT", "10s"),

		// Console
		PageSize:           getEnvAsInt("PAGE_SIZE", 10),
		CatalogCacheTTL:    getEnvAsDuration("CATALOG_CACHE_TTL", "30s"),
		CheckInLockTTL:     getEnvAsDuration("CHECKIN_LOCK_TTL", "15s"),
		AdminCollection:    getEnv("ADMIN_COLLECTION", "admins"),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),

		// Monitoring
		EnableMetrics:          getEnvAsBool("ENABLE_METRICS", true),
		MetricsCollectInterval: getEnvAsDuration("METRICS_COLLECT_INTERVAL", "15s"),
	}
}

// PubNubEnabled reports whether live notifications can be published.
func (c *Config) PubNubEnabled() bool {
	return c.PubNubPublishKey != "" && c.PubNubSubscribeKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// fall back to the default when the variable is malformed
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
