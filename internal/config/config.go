package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	LogLevel          string
	StorageDriver     string
	DBDSN             string
	JWTSecret         string
	JWTAccessTokenTTL time.Duration

	// Request size caps for availability resolution and bulk booking.
	BulkMaxSpanDays     int
	BulkMaxSlotPatterns int

	// Redis court cache; disabled when RedisAddr is empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CourtCacheTTL time.Duration

	// RabbitMQ; events and the payment consumer are disabled when RabbitURL is empty.
	RabbitURL       string
	BookingExchange string
	PaymentExchange string
	PaymentQueue    string

	CompletionSweepInterval time.Duration
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	// Storage driver (default: postgres); the memory driver is for local runs.
	cfg.StorageDriver = getEnv("STORAGE_DRIVER", StoragePostgres)
	switch cfg.StorageDriver {
	case StoragePostgres:
		cfg.DBDSN = os.Getenv("DB_DSN")
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	// JWT secret is required for verifying tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}

	if cfg.BulkMaxSpanDays, err = getEnvAsInt("BULK_MAX_SPAN_DAYS", 90); err != nil {
		return nil, fmt.Errorf("invalid BULK_MAX_SPAN_DAYS: %w", err)
	}
	if cfg.BulkMaxSlotPatterns, err = getEnvAsInt("BULK_MAX_SLOT_PATTERNS", 20); err != nil {
		return nil, fmt.Errorf("invalid BULK_MAX_SLOT_PATTERNS: %w", err)
	}

	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisDB, err = getEnvAsInt("REDIS_DB", 0); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.CourtCacheTTL, err = getEnvAsDuration("COURT_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	cfg.RabbitURL = getEnv("RABBIT_URL", "")
	cfg.BookingExchange = getEnv("BOOKING_EXCHANGE", "booking.events")
	cfg.PaymentExchange = getEnv("PAYMENT_EXCHANGE", "payment.events")
	cfg.PaymentQueue = getEnv("PAYMENT_QUEUE", "scheduler.payment")

	if cfg.CompletionSweepInterval, err = getEnvAsDuration("COMPLETION_SWEEP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

// getEnvAsDuration parses values like "15m" or "1h".
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return val, nil
}
