package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string
	LogLevel   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Browser pool.
	BrowserPoolSize   int
	BrowserExecPath   string
	BrowserUserAgent  string
	AcquireTimeout    time.Duration
	SessionIdleTTL    time.Duration
	SessionMaxCrashes int

	// Task execution.
	ActionTimeout time.Duration
	TaskTimeout   time.Duration

	// Render result cache; zero disables caching.
	ResultCacheTTL time.Duration

	// Product scraping.
	StorefrontBaseURL   string
	ScrapeDedupTTL      time.Duration
	ScrapeRetryInterval time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "user"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresDB:       getEnv("POSTGRES_DB", "moolyamitra"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvAsInt("REDIS_DB", 0),

		BrowserPoolSize:   getEnvAsInt("BROWSER_POOL_SIZE", 4),
		BrowserExecPath:   getEnv("BROWSER_EXEC_PATH", ""),
		BrowserUserAgent:  getEnv("BROWSER_USER_AGENT", ""),
		AcquireTimeout:    getEnvAsDuration("ACQUIRE_TIMEOUT_SECONDS", 30) * time.Second,
		SessionIdleTTL:    getEnvAsDuration("SESSION_IDLE_TTL_SECONDS", 300) * time.Second,
		SessionMaxCrashes: getEnvAsInt("SESSION_MAX_CRASHES", 3),

		ActionTimeout: getEnvAsDuration("ACTION_TIMEOUT_SECONDS", 15) * time.Second,
		TaskTimeout:   getEnvAsDuration("TASK_TIMEOUT_SECONDS", 60) * time.Second,

		ResultCacheTTL: getEnvAsDuration("RESULT_CACHE_TTL_SECONDS", 0) * time.Second,

		StorefrontBaseURL:   getEnv("STOREFRONT_BASE_URL", "https://www.amazon.in"),
		ScrapeDedupTTL:      getEnvAsDuration("SCRAPE_DEDUP_TTL_HOURS", 48) * time.Hour,
		ScrapeRetryInterval: getEnvAsDuration("SCRAPE_RETRY_INTERVAL_SECONDS", 60) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback))
}
