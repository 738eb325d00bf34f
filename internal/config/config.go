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

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string

	Logger   LoggerConfig
	Sequence SequenceConfig

	// InvoicingConfigPaths are searched, in order, for invoicing.yml.
	InvoicingConfigPaths []string
	// InvoiceBatchConcurrency bounds the clients invoiced in parallel by one batch.
	InvoiceBatchConcurrency int

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

type LoggerConfig struct {
	Level string
}

// SequenceConfig selects the backend that hands out invoice sequence numbers.
type SequenceConfig struct {
	Backend       string
	MaxAttempts   int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

const (
	SequenceBackendSQL   = "sql"
	SequenceBackendRedis = "redis"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "freshwall"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: strings.TrimSpace(getenv("OTLP_ENDPOINT", "")),
		Logger: LoggerConfig{
			Level: strings.ToLower(getenv("LOG_LEVEL", "info")),
		},
		Sequence: SequenceConfig{
			Backend:       normalizeSequenceBackend(getenv("INVOICE_SEQUENCE_BACKEND", SequenceBackendSQL)),
			MaxAttempts:   getenvInt("INVOICE_SEQUENCE_MAX_ATTEMPTS", 8),
			RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "localhost:6379")),
			RedisPassword: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("REDIS_DB", 0),
		},
		InvoicingConfigPaths:    parseList(getenv("INVOICING_CONFIG_PATHS", "/etc/freshwall,.")),
		InvoiceBatchConcurrency: getenvInt("INVOICE_BATCH_CONCURRENCY", 4),
		DBType:                  getenv("DATABASE_TYPE", "sqlite"),
		DBHost:                  getenv("DATABASE_HOST", "localhost"),
		DBPort:                  getenv("DATABASE_PORT", "5432"),
		DBName:                  getenv("DATABASE_NAME", "freshwall"),
		DBUser:                  getenv("DATABASE_USER", "postgres"),
		DBPassword:              getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:               getenv("DATABASE_SSLMODE", "disable"),
		DBPath:                  getenv("DATABASE_PATH", "freshwall.db"),
		DBMaxIdleConn:           getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:           getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:       getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:       getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func normalizeSequenceBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case SequenceBackendRedis:
		return SequenceBackendRedis
	default:
		return SequenceBackendSQL
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

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
