package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Assessment AssessmentConfig
	Azure      AzureConfig
	Advisor    AdvisorConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigin   string
}

// DatabaseConfig contains snapshot store configuration
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// AssessmentConfig contains assessment run configuration
type AssessmentConfig struct {
	TenantID    string
	ScopeFilter string
	VersionTag  string
	CatalogPath string
	// Schedule is a standard cron expression for the background worker.
	Schedule string
	// RetentionDays controls snapshot pruning; 0 disables pruning.
	RetentionDays int
}

// AzureConfig contains the governance API credentials
type AzureConfig struct {
	TenantID       string
	ClientID       string
	ClientSecret   string
	SubscriptionID string
	// RequestsPerSecond throttles retrieval calls against the ARM API.
	RequestsPerSecond float64
}

// AdvisorConfig contains the optional advisory narrative settings
type AdvisorConfig struct {
	OpenAIAPIKey string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigin:   getEnv("ALLOWED_ORIGIN", "*"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "policyaudit"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./policyaudit.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Assessment: AssessmentConfig{
			TenantID:      getEnv("ASSESSMENT_TENANT_ID", ""),
			ScopeFilter:   getEnv("ASSESSMENT_SCOPE_FILTER", ""),
			VersionTag:    getEnv("ASSESSMENT_VERSION_TAG", "dev"),
			CatalogPath:   getEnv("BASELINE_CATALOG_PATH", ""),
			Schedule:      getEnv("ASSESSMENT_SCHEDULE", ""),
			RetentionDays: getEnvAsInt("SNAPSHOT_RETENTION_DAYS", 0),
		},
		Azure: AzureConfig{
			TenantID:          getEnv("AZURE_TENANT_ID", ""),
			ClientID:          getEnv("AZURE_CLIENT_ID", ""),
			ClientSecret:      getEnv("AZURE_CLIENT_SECRET", ""),
			SubscriptionID:    getEnv("AZURE_SUBSCRIPTION_ID", ""),
			RequestsPerSecond: getEnvAsFloat("AZURE_REQUESTS_PER_SECOND", 5),
		},
		Advisor: AdvisorConfig{
			OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
