package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	CORSOrigins   []string
	AuthJWTSecret string

	// Outbound notification queue
	UseMemoryQueue bool
	WorkerCount    int
	NotifyQueueURL string

	// WhatsApp gateway (Evolution-style API)
	GatewayBaseURL  string
	GatewayAPIKey   string
	GatewayInstance string
	WebhookSecret   string

	// Destination number normalization
	CountryPrefix string

	// Scheduled triggers
	DefaultTimezone     string
	TriggerInterval     time.Duration
	DailySummaryHour    int
	MiddaySummaryHour   int
	WeeklySummaryHour   int
	ReminderLeadTime    time.Duration
	ReminderWindow      time.Duration
	ExpiryLookaheadDays int
	DispatchJitterMin   time.Duration
	DispatchJitterMax   time.Duration
	MaintenanceHour     int
	AuditRetentionDays  int

	// AWS (SQS notification queue)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Redis (provider settings store)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		CORSOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),
		NotifyQueueURL: getEnv("NOTIFY_QUEUE_URL", ""),

		GatewayBaseURL:  getEnv("GATEWAY_BASE_URL", ""),
		GatewayAPIKey:   getEnv("GATEWAY_API_KEY", ""),
		GatewayInstance: getEnv("GATEWAY_INSTANCE", ""),
		WebhookSecret:   getEnv("WEBHOOK_SECRET", ""),

		CountryPrefix: getEnv("COUNTRY_PREFIX", "55"),

		DefaultTimezone:     getEnv("DEFAULT_TIMEZONE", "America/Sao_Paulo"),
		TriggerInterval:     getEnvAsDuration("TRIGGER_INTERVAL", 15*time.Minute),
		DailySummaryHour:    getEnvAsInt("DAILY_SUMMARY_HOUR", 6),
		MiddaySummaryHour:   getEnvAsInt("MIDDAY_SUMMARY_HOUR", 12),
		WeeklySummaryHour:   getEnvAsInt("WEEKLY_SUMMARY_HOUR", 18),
		ReminderLeadTime:    getEnvAsDuration("REMINDER_LEAD_TIME", 45*time.Minute),
		ReminderWindow:      getEnvAsDuration("REMINDER_WINDOW", 30*time.Minute),
		ExpiryLookaheadDays: getEnvAsInt("EXPIRY_LOOKAHEAD_DAYS", 7),
		DispatchJitterMin:   getEnvAsDuration("DISPATCH_JITTER_MIN", 2*time.Second),
		DispatchJitterMax:   getEnvAsDuration("DISPATCH_JITTER_MAX", 5*time.Second),
		MaintenanceHour:     getEnvAsInt("MAINTENANCE_HOUR", 3),
		AuditRetentionDays:  getEnvAsInt("AUDIT_RETENTION_DAYS", 90),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
