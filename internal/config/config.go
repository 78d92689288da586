package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Auth modes
const (
	AuthModeAuth0 = "auth0"
	AuthModeLocal = "local"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string
	AutoMigrate bool

	// Auth
	AuthMode      string
	Auth0Domain   string
	Auth0Audience string
	Auth0ClientID string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// S3 Storage
	S3 S3Config

	// LLM provider
	LLM LLMConfig

	// Workspaces and documents
	WorkspaceCacheTTL  time.Duration
	TrashRetentionDays int
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for LocalStack/MinIO local dev
}

// LLMConfig holds the OpenAI-compatible LLM endpoint configuration
type LLMConfig struct {
	APIURL             string
	APIKey             string
	Model              string
	PricePer1KTokens   decimal.Decimal
	RateLimitPerMinute int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	price, err := decimal.NewFromString(getEnv("LLM_PRICE_PER_1K_TOKENS", "0.002"))
	if err != nil {
		return nil, fmt.Errorf("LLM_PRICE_PER_1K_TOKENS: %w", err)
	}
	rateLimit, err := strconv.Atoi(getEnv("AI_RATE_LIMIT_PER_MINUTE", "20"))
	if err != nil {
		return nil, fmt.Errorf("AI_RATE_LIMIT_PER_MINUTE: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("WORKSPACE_CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("WORKSPACE_CACHE_TTL: %w", err)
	}
	retention, err := strconv.Atoi(getEnv("TRASH_RETENTION_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("TRASH_RETENTION_DAYS: %w", err)
	}

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		AutoMigrate:   getEnv("AUTO_MIGRATE", "false") == "true",
		AuthMode:      strings.ToLower(getEnv("AUTH_MODE", AuthModeAuth0)),
		Auth0Domain:   getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience: getEnv("AUTH0_AUDIENCE", ""),
		Auth0ClientID: getEnv("AUTH0_CLIENT_ID", ""),
		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:           getEnv("ENV", "development"),
		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS
		},
		LLM: LLMConfig{
			APIURL:             getEnv("LLM_API_URL", "https://api.openai.com/v1"),
			APIKey:             getEnv("LLM_API_KEY", ""),
			Model:              getEnv("LLM_MODEL", "gpt-4o-mini"),
			PricePer1KTokens:   price,
			RateLimitPerMinute: rateLimit,
		},
		WorkspaceCacheTTL:  cacheTTL,
		TrashRetentionDays: retention,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Enabled reports whether file uploads are configured
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Enabled reports whether AI features are configured
func (c LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

// IsProduction reports whether the service runs with ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.AuthMode {
	case AuthModeAuth0:
		if c.Auth0Domain == "" {
			return fmt.Errorf("AUTH0_DOMAIN is required")
		}
		if c.Auth0Audience == "" {
			return fmt.Errorf("AUTH0_AUDIENCE is required")
		}
	case AuthModeLocal:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=local is not allowed in production")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q", AuthModeAuth0, AuthModeLocal)
	}
	if c.LLM.RateLimitPerMinute <= 0 {
		return fmt.Errorf("AI_RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.WorkspaceCacheTTL < 0 {
		return fmt.Errorf("WORKSPACE_CACHE_TTL must not be negative")
	}
	if c.TrashRetentionDays < 1 {
		return fmt.Errorf("TRASH_RETENTION_DAYS must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
