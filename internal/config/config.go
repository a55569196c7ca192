package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Platform PlatformConfig
	Quotes   QuotesConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// PlatformConfig holds the insurance platform upstream settings shared by
// every service client.
type PlatformConfig struct {
	BaseURL string
	AgentID string
	Channel string
	Timeout time.Duration
}

// QuotesConfig holds the quote aggregation knobs.
type QuotesConfig struct {
	PollInterval     time.Duration
	PollBudget       time.Duration
	ProgressFloor    int
	ProductAllowlist []string
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "sigorka")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("PLATFORM_BASE_URL", "http://localhost:9000")
	v.SetDefault("PLATFORM_AGENT_ID", "")
	v.SetDefault("PLATFORM_CHANNEL", "WEB")
	v.SetDefault("PLATFORM_TIMEOUT", "10s")
	v.SetDefault("QUOTE_POLL_INTERVAL", "5s")
	v.SetDefault("QUOTE_POLL_BUDGET", "5m")
	v.SetDefault("QUOTE_PROGRESS_FLOOR", 30)
	v.SetDefault("PRODUCT_ALLOWLIST", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind environment variables
	v.AutomaticEnv()

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		Platform: PlatformConfig{
			BaseURL: v.GetString("PLATFORM_BASE_URL"),
			AgentID: v.GetString("PLATFORM_AGENT_ID"),
			Channel: v.GetString("PLATFORM_CHANNEL"),
			Timeout: v.GetDuration("PLATFORM_TIMEOUT"),
		},
		Quotes: QuotesConfig{
			PollInterval:     v.GetDuration("QUOTE_POLL_INTERVAL"),
			PollBudget:       v.GetDuration("QUOTE_POLL_BUDGET"),
			ProgressFloor:    v.GetInt("QUOTE_PROGRESS_FLOOR"),
			ProductAllowlist: splitList(v.GetString("PRODUCT_ALLOWLIST")),
		},
		CORS: CORSConfig{
			Origins: splitList(v.GetString("CORS_ORIGINS")),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	if c.Platform.BaseURL == "" {
		return fmt.Errorf("PLATFORM_BASE_URL is required")
	}
	if c.Platform.Timeout <= 0 {
		return fmt.Errorf("PLATFORM_TIMEOUT must be positive")
	}

	if c.Quotes.PollInterval <= 0 {
		return fmt.Errorf("QUOTE_POLL_INTERVAL must be positive")
	}
	if c.Quotes.PollBudget <= 0 {
		return fmt.Errorf("QUOTE_POLL_BUDGET must be positive")
	}
	if c.Quotes.ProgressFloor < 0 || c.Quotes.ProgressFloor >= 100 {
		return fmt.Errorf("QUOTE_PROGRESS_FLOOR must be in [0, 100)")
	}
	if len(c.Quotes.ProductAllowlist) == 0 {
		return fmt.Errorf("PRODUCT_ALLOWLIST is required")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	return nil
}

// splitList splits a comma-separated string into a trimmed slice.
func splitList(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
