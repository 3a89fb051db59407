package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	RedisURL    string

	GeminiAPIKey    string
	GeminiModel     string
	MeiliSearchHost string
	MeiliMasterKey  string

	ClassifierTimeout  time.Duration
	ClassifierCacheTTL time.Duration

	FeedStream        string
	FeedGroup         string
	FeedBlock         time.Duration
	FeedClaimMinIdle  time.Duration
	FeedClaimInterval time.Duration
	FeedMaxDeliveries int

	ProjectionCron string
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		MeiliSearchHost: getEnv("MEILISEARCH_HOST", "http://localhost:7700"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		FeedStream: getEnv("FEED_STREAM", "changefeed"),
		FeedGroup:  getEnv("FEED_GROUP", "reconciler"),

		// Every morning at 00:05 in server time
		ProjectionCron: getEnv("PROJECTION_CRON", "5 0 * * *"),
	}

	var err error
	cfg.ClassifierTimeout, err = parseDuration(getEnv("CLASSIFIER_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLASSIFIER_TIMEOUT: %w", err)
	}
	cfg.ClassifierCacheTTL, err = parseDuration(getEnv("CLASSIFIER_CACHE_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLASSIFIER_CACHE_TTL: %w", err)
	}
	cfg.FeedBlock, err = parseDuration(getEnv("FEED_BLOCK", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_BLOCK: %w", err)
	}
	cfg.FeedClaimMinIdle, err = parseDuration(getEnv("FEED_CLAIM_MIN_IDLE", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_CLAIM_MIN_IDLE: %w", err)
	}
	cfg.FeedClaimInterval, err = parseDuration(getEnv("FEED_CLAIM_INTERVAL", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_CLAIM_INTERVAL: %w", err)
	}
	cfg.FeedMaxDeliveries, err = strconv.Atoi(getEnv("FEED_MAX_DELIVERIES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_MAX_DELIVERIES: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
