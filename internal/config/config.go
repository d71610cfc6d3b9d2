package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"catalog-sync-service/internal/models"
)

// Config holds all configuration for the catalog sync service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// Feed discovery
	FeedDir            string
	IncomingFeedPrefix string
	IncomingFeedSuffix string
	DelistedFeedPrefix string
	DelistedFeedSuffix string

	// Remote catalog
	ShopifyStore       string
	ShopifyAccessToken string

	// Sync settings
	LocationID     string
	DelistedPolicy models.DelistedPolicy
	SyncMaxRetries int
	SyncRetryDelay time.Duration
}

// Load loads configuration from environment variables. Missing required
// values abort startup; a run can never begin without them.
func Load() *Config {
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := getEnv("DB_PASSWORD", "")
		dbName := getEnv("DB_NAME", "catalog_sync")
		dbSSLMode := getEnv("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)
	}

	config := &Config{
		Port:        getEnv("PORT", "8098"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: databaseURL,

		FeedDir:            getEnv("FEED_DIR", ""),
		IncomingFeedPrefix: getEnv("FEED_INCOMING_PREFIX", "items"),
		IncomingFeedSuffix: getEnv("FEED_INCOMING_SUFFIX", ".csv"),
		DelistedFeedPrefix: getEnv("FEED_DELISTED_PREFIX", "oos"),
		DelistedFeedSuffix: getEnv("FEED_DELISTED_SUFFIX", ".csv"),

		ShopifyStore:       getEnv("SHOPIFY_STORE", ""),
		ShopifyAccessToken: getEnv("SHOPIFY_ACCESS_TOKEN", ""),

		LocationID:     getEnv("SYNC_LOCATION_ID", ""),
		DelistedPolicy: models.DelistedPolicy(getEnv("DELISTED_POLICY", string(models.DelistedZeroStock))),
		SyncMaxRetries: getEnvAsInt("SYNC_MAX_RETRIES", 5),
		SyncRetryDelay: getEnvAsDuration("SYNC_RETRY_DELAY", 2*time.Second),
	}

	if config.FeedDir == "" {
		log.Fatal("FEED_DIR is required")
	}
	if config.ShopifyStore == "" {
		log.Fatal("SHOPIFY_STORE is required")
	}
	if config.ShopifyAccessToken == "" {
		log.Fatal("SHOPIFY_ACCESS_TOKEN is required")
	}
	if config.LocationID == "" {
		log.Fatal("SYNC_LOCATION_ID is required")
	}
	if !config.DelistedPolicy.Valid() {
		log.Fatalf("DELISTED_POLICY must be %q or %q", models.DelistedZeroStock, models.DelistedDelete)
	}

	return config
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
