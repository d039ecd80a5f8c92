package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Admin API gate
	Admin AdminConfig

	// Import job settings
	Import ImportConfig

	// Partner nursery (Plantmark) credentials
	Plantmark PlantmarkConfig

	// Category repair schedule
	Repair RepairConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings.
// URL takes precedence over the discrete host/port fields.
type DatabaseConfig struct {
	URL            string
	DirectURL      string
	MigrationsPath string
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
}

// AdminConfig holds the admin API key gate settings
type AdminConfig struct {
	APIKey            string
	PublicPathMarkers []string
}

// ImportConfig holds import job settings
type ImportConfig struct {
	MaxWorkers    int
	ProgressEvery int
	SweepInterval time.Duration
}

// PlantmarkConfig holds the partner site endpoints and credentials
type PlantmarkConfig struct {
	BaseURL      string
	APIURL       string
	Username     string
	Password     string
	APIKey       string
	Timeout      time.Duration
	RequestDelay time.Duration
}

// RepairConfig holds the scheduled category repair settings
type RepairConfig struct {
	Schedule string // cron spec with seconds field, empty disables
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables, after applying a
// .env file if one is present in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			DirectURL:      getEnv("DIRECT_URL", ""),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "plant_nursery"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:    getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Admin: AdminConfig{
			APIKey:            getEnv("ADMIN_API_KEY", ""),
			PublicPathMarkers: getListEnv("ADMIN_PUBLIC_PATH_MARKERS", []string{"/public"}),
		},
		Import: ImportConfig{
			MaxWorkers:    getIntEnv("IMPORT_MAX_WORKERS", 2),
			ProgressEvery: getIntEnv("IMPORT_PROGRESS_EVERY", 25),
			SweepInterval: getDurationEnv("IMPORT_SWEEP_INTERVAL", 30*time.Second),
		},
		Plantmark: PlantmarkConfig{
			BaseURL:      getEnv("PLANTMARK_BASE_URL", "https://www.plantmark.com.au"),
			APIURL:       getEnv("PLANTMARK_API_URL", ""),
			Username:     getEnv("PLANTMARK_USERNAME", ""),
			Password:     getEnv("PLANTMARK_PASSWORD", ""),
			APIKey:       getEnv("PLANTMARK_API_KEY", ""),
			Timeout:      getDurationEnv("PLANTMARK_TIMEOUT", 20*time.Second),
			RequestDelay: getDurationEnv("PLANTMARK_REQUEST_DELAY", 500*time.Millisecond),
		},
		Repair: RepairConfig{
			Schedule: getEnv("REPAIR_SCHEDULE", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("DATABASE_URL or DB_HOST is required")
	}
	if c.Database.URL == "" && c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Admin.APIKey == "" {
		return fmt.Errorf("ADMIN_API_KEY is required")
	}
	if c.Import.MaxWorkers < 1 {
		return fmt.Errorf("IMPORT_MAX_WORKERS must be at least 1")
	}
	return nil
}

// GetDSN returns the pooled PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetMigrationDSN returns the connection string used for schema migrations.
// Poolers in transaction mode cannot run migrations, hence DIRECT_URL.
func (c *DatabaseConfig) GetMigrationDSN() string {
	if c.DirectURL != "" {
		return c.DirectURL
	}
	return c.GetDSN()
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
