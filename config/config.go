package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// Server configuration
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// SMS configuration
	SMSEnabled       bool
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	CountryCode      string
	NotifyDelay      time.Duration

	// Statistics configuration
	StatsWindow        int
	StatsCacheTTL      time.Duration
	PositionTTL        time.Duration
	FallbackAvgService time.Duration

	// Rate limiting
	JoinRateLimit  int
	JoinRateWindow time.Duration

	// Admin
	AdminPasswordHash string

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// SMS
		SMSEnabled:       getEnvAsBool("SMS_ENABLED", false),
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		CountryCode:      getEnv("SMS_COUNTRY_CODE", "55"),
		NotifyDelay:      getEnvAsDuration("SMS_NOTIFY_DELAY", "3s"),

		// Statistics
		StatsWindow:        getEnvAsInt("STATS_WINDOW", 20),
		StatsCacheTTL:      getEnvAsDuration("STATS_CACHE_TTL", "30s"),
		PositionTTL:        getEnvAsDuration("POSITION_TTL", "5s"),
		FallbackAvgService: getEnvAsDuration("FALLBACK_AVG_SERVICE", "5m"),

		// Rate limiting
		JoinRateLimit:  getEnvAsInt("JOIN_RATE_LIMIT", 10),
		JoinRateWindow: getEnvAsDuration("JOIN_RATE_WINDOW", "1m"),

		// Admin
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

// Validate rejects partially configured deployments at startup. A process
// with SMS enabled but no provider credentials must refuse to run rather
// than silently drop notifications.
func (c *Config) Validate() error {
	if c.SMSEnabled && (c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioFromNumber == "") {
		return errors.New("SMS_ENABLED requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER")
	}
	if c.AdminPasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(c.AdminPasswordHash)); err != nil {
			return fmt.Errorf("ADMIN_PASSWORD_HASH is not a valid bcrypt hash: %w", err)
		}
	}
	if c.StatsWindow <= 0 {
		return errors.New("STATS_WINDOW must be positive")
	}
	if c.CountryCode == "" {
		return errors.New("SMS_COUNTRY_CODE must not be empty")
	}
	return nil
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
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
