package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server
	Port         string
	BaseURL      string
	TemplateGlob string
	UploadDir    string

	// MySQL
	DatabaseDSN string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Sessions
	SessionTTL  time.Duration
	RememberTTL time.Duration

	// Signup
	CampusEmailDomain    string
	UnverifiedAccountTTL time.Duration

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string

	// Rate Limiting
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.DatabaseDSN, err = getRequiredEnv("DATABASE_DSN")
	if err != nil {
		return nil, err
	}

	cfg.Port = getEnv("PORT", "3000")
	cfg.BaseURL = getEnv("BASE_URL", "http://localhost:"+cfg.Port)
	cfg.TemplateGlob = getEnv("TEMPLATE_GLOB", "web/templates/**/*")
	cfg.UploadDir = getEnv("UPLOAD_DIR", "public/uploads")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.CampusEmailDomain = getEnv("CAMPUS_EMAIL_DOMAIN", "@dongguk.ac.kr")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@wisemarket.example.com")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	sessionTTLSeconds, err := strconv.ParseInt(getEnv("SESSION_TTL_SECONDS", "86400"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL_SECONDS: %w", err)
	}
	cfg.SessionTTL = time.Duration(sessionTTLSeconds) * time.Second

	rememberTTLHours, err := strconv.ParseInt(getEnv("REMEMBER_TTL_HOURS", "168"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REMEMBER_TTL_HOURS: %w", err)
	}
	cfg.RememberTTL = time.Duration(rememberTTLHours) * time.Hour

	unverifiedTTLSeconds, err := strconv.ParseInt(getEnv("UNVERIFIED_ACCOUNT_TTL_SECONDS", "172800"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid UNVERIFIED_ACCOUNT_TTL_SECONDS: %w", err)
	}
	cfg.UnverifiedAccountTTL = time.Duration(unverifiedTTLSeconds) * time.Second

	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
