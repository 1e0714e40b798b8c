package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	S3        S3Config
	Promo     PromoConfig
	Redis     RedisConfig
	Orders    OrdersConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	AutoMigrate     bool
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// S3Config holds AWS S3 configuration for promo code lists.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "promos/")
}

// PromoConfig holds promo code validation configuration.
type PromoConfig struct {
	FilePaths     []string
	MinMatchCount int
}

// Enabled reports whether any promo code lists are configured.
func (c PromoConfig) Enabled() bool {
	return len(c.FilePaths) > 0
}

// RedisConfig holds the checkout idempotency store configuration.
// An empty URL disables idempotency keys.
type RedisConfig struct {
	URL            string
	IdempotencyTTL time.Duration
	// PendingTTL bounds how long an unfinished checkout holds its key.
	PendingTTL time.Duration
}

// OrdersConfig holds order lifecycle configuration.
type OrdersConfig struct {
	TransitionMode model.TransitionMode
}

// TelemetryConfig holds OpenTelemetry metrics export configuration.
type TelemetryConfig struct {
	Enabled        bool
	Endpoint       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
	ExportInterval time.Duration
}

// Load loads configuration from environment variables, reading a .env file
// first when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	mode, err := model.ParseTransitionMode(getEnv("ORDER_TRANSITIONS", string(model.TransitionStrict)))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "storefront"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "us-east-1"),
			Prefix:  getEnv("S3_PREFIX", "promos/"),
		},
		Promo: PromoConfig{
			FilePaths:     getEnvAsList("PROMO_FILES"),
			MinMatchCount: getEnvAsInt("PROMO_MIN_MATCH_COUNT", 2),
		},
		Redis: RedisConfig{
			URL:            getEnv("REDIS_URL", ""),
			IdempotencyTTL: getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour),
			PendingTTL:     getEnvAsDuration("IDEMPOTENCY_PENDING_TTL", 2*time.Minute),
		},
		Orders: OrdersConfig{
			TransitionMode: mode,
		},
		Telemetry: TelemetryConfig{
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Insecure:       getEnvAsBool("OTEL_INSECURE", true),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "storefront"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			ExportInterval: getEnvAsDuration("OTEL_EXPORT_INTERVAL", 15*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Promo.Enabled() {
		if c.Promo.MinMatchCount < 1 {
			return fmt.Errorf("promo min match count must be at least 1")
		}
		if c.Promo.MinMatchCount > len(c.Promo.FilePaths) {
			return fmt.Errorf("promo min match count (%d) cannot exceed the number of promo files (%d)",
				c.Promo.MinMatchCount, len(c.Promo.FilePaths))
		}
	}

	if c.Redis.URL != "" {
		if c.Redis.IdempotencyTTL <= 0 {
			return fmt.Errorf("idempotency TTL must be positive")
		}
		if c.Redis.PendingTTL <= 0 || c.Redis.PendingTTL > c.Redis.IdempotencyTTL {
			return fmt.Errorf("idempotency pending TTL must be positive and at most the idempotency TTL")
		}
	}

	if c.Orders.TransitionMode != model.TransitionStrict && c.Orders.TransitionMode != model.TransitionPermissive {
		return fmt.Errorf("invalid order transition mode: %s (must be strict or permissive)", c.Orders.TransitionMode)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry endpoint is required when telemetry is enabled")
		}
		if c.Telemetry.ExportInterval <= 0 {
			return fmt.Errorf("telemetry export interval must be positive")
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, dropping blanks.
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
