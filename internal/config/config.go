package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	Ingest IngestConfig
}

// IngestConfig carries the pipeline's operational knobs and projection
// policy. The quantity defaults are policy decisions, not derived data:
// a production record with no line-issue indicator counts as one defect,
// and every accepted shipping record counts as exactly one.
type IngestConfig struct {
	DefaultBatchSize       int
	DefaultProductionIssue int
	ShippingIssueQuantity  int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "lotsight"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBType:     getenv("DATABASE_TYPE", "postgres"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "lotsight"),
		DBUser:     getenv("DATABASE_USER", "lotsight"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),

		Ingest: IngestConfig{
			DefaultBatchSize:       getenvInt("INGEST_BATCH_SIZE", 500),
			DefaultProductionIssue: getenvInt("INGEST_DEFAULT_PRODUCTION_QUANTITY", 1),
			ShippingIssueQuantity:  getenvInt("INGEST_SHIPPING_QUANTITY", 1),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
