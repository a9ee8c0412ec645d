// Package config provides configuration management and environment variable handling for the application
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	Claim      ClaimConfig      `json:"claim"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Breaker    BreakerConfig    `json:"breaker"`
	Deployment DeploymentConfig `json:"deployment"`
}

type DatabaseConfig struct {
	URI                string        `json:"uri"`
	Name               string        `json:"name"`
	Collection         string        `json:"collection"`
	CountersCollection string        `json:"counters_collection"`
	ConnectTimeout     time.Duration `json:"connect_timeout"`
	OperationTimeout   time.Duration `json:"operation_timeout"`
	MaxPoolSize        uint64        `json:"max_pool_size"`
	MinPoolSize        uint64        `json:"min_pool_size"`
	HealthInterval     time.Duration `json:"health_interval"`
	EnsureIndexes      bool          `json:"ensure_indexes"`
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	BodyLimit         int           `json:"body_limit"`
	EnableCompression bool          `json:"enable_compression"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate Limiting
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per window
	PickRateLimit   int           `json:"pick_rate_limit"`   // requests per window
	RateLimitWindow time.Duration `json:"rate_limit_window"`
}

// ClaimConfig tunes the random claim loop
type ClaimConfig struct {
	SampleSize  int `json:"sample_size"`
	MaxAttempts int `json:"max_attempts"`
}

type LoggingConfig struct {
	Level            string `json:"level"`  // debug, info, warn, error
	Format           string `json:"format"` // json, console
	Output           string `json:"output"` // stdout, file, both
	FilePath         string `json:"file_path"`
	MaxSize          int    `json:"max_size"` // MB
	MaxBackups       int    `json:"max_backups"`
	MaxAge           int    `json:"max_age"` // days
	Compress         bool   `json:"compress"`
	EnableCaller     bool   `json:"enable_caller"`
	EnableStacktrace bool   `json:"enable_stacktrace"`
	EnableAccessLog  bool   `json:"enable_access_log"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled        bool          `json:"enabled"`
	Provider       string        `json:"provider"` // redis
	RedisURL       string        `json:"redis_url"`
	RedisDB        int           `json:"redis_db"`
	RedisPrefix    string        `json:"redis_prefix"`
	CountTTL       time.Duration `json:"count_ttl"`
	HealthInterval time.Duration `json:"health_interval"`

	// CountRefreshInterval controls the background recount of active bottles. Zero disables it.
	CountRefreshInterval time.Duration `json:"count_refresh_interval"`
}

// BreakerConfig configures the circuit breaker guarding the document store
type BreakerConfig struct {
	Enabled             bool          `json:"enabled"`
	MaxRequests         uint32        `json:"max_requests"`
	Interval            time.Duration `json:"interval"`
	Timeout             time.Duration `json:"timeout"`
	ConsecutiveFailures uint32        `json:"consecutive_failures"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			URI:                getEnvString("MONGO_URI", ""),
			Name:               getEnvString("DATABASE_NAME", ""),
			Collection:         getEnvString("COLLECTION_NAME", ""),
			CountersCollection: getEnvString("COUNTERS_COLLECTION_NAME", "counters"),
			ConnectTimeout:     getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			OperationTimeout:   getEnvDuration("DB_OPERATION_TIMEOUT", 5*time.Second),
			MaxPoolSize:        getEnvUint64("DB_MAX_POOL_SIZE", 100),
			MinPoolSize:        getEnvUint64("DB_MIN_POOL_SIZE", 0),
			HealthInterval:     getEnvDuration("DB_HEALTH_INTERVAL", 30*time.Second),
			EnsureIndexes:      getEnvBool("DB_ENSURE_INDEXES", true),
		},
		Server: ServerConfig{
			Host:              getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:              getEnvInt("SERVER_PORT", 8000),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:         getEnvInt("SERVER_BODY_LIMIT", 4*1024*1024), // 4MB
			EnableCompression: getEnvBool("SERVER_ENABLE_COMPRESSION", true),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			CORSMaxAge:       getEnvInt("CORS_MAX_AGE", 86400),
			GlobalRateLimit:  getEnvInt("GLOBAL_RATE_LIMIT", 2000),
			PickRateLimit:    getEnvInt("PICK_RATE_LIMIT", 120),
			RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		Claim: ClaimConfig{
			SampleSize:  getEnvInt("CLAIM_SAMPLE_SIZE", 5),
			MaxAttempts: getEnvInt("CLAIM_MAX_ATTEMPTS", 3),
		},
		Logging: LoggingConfig{
			Level:            getEnvString("LOG_LEVEL", "info"),
			Format:           getEnvString("LOG_FORMAT", "json"),
			Output:           getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:         getEnvString("LOG_FILE_PATH", "/var/log/drift-bottle/app.log"),
			MaxSize:          getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:       getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:           getEnvInt("LOG_MAX_AGE", 30),
			Compress:         getEnvBool("LOG_COMPRESS", true),
			EnableCaller:     getEnvBool("LOG_ENABLE_CALLER", true),
			EnableStacktrace: getEnvBool("LOG_ENABLE_STACKTRACE", true),
			EnableAccessLog:  getEnvBool("LOG_ENABLE_ACCESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:              getEnvBool("CACHE_ENABLED", false),
			Provider:             getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:             getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:              getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:          getEnvString("CACHE_REDIS_PREFIX", "driftbottle:"),
			CountTTL:             getEnvDuration("CACHE_COUNT_TTL", 5*time.Second),
			HealthInterval:       getEnvDuration("CACHE_HEALTH_INTERVAL", 30*time.Second),
			CountRefreshInterval: getEnvDuration("CACHE_COUNT_REFRESH_INTERVAL", 30*time.Second),
		},
		Breaker: BreakerConfig{
			Enabled:             getEnvBool("BREAKER_ENABLED", true),
			MaxRequests:         uint32(getEnvInt("BREAKER_MAX_REQUESTS", 1)),
			Interval:            getEnvDuration("BREAKER_INTERVAL", 60*time.Second),
			Timeout:             getEnvDuration("BREAKER_TIMEOUT", 15*time.Second),
			ConsecutiveFailures: uint32(getEnvInt("BREAKER_CONSECUTIVE_FAILURES", 5)),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from the given file if it exists.
// Variables already present in the environment win.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	if cfg.Database.URI == "" {
		errors = append(errors, "MONGO_URI is required")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DATABASE_NAME is required")
	}
	if cfg.Database.Collection == "" {
		errors = append(errors, "COLLECTION_NAME is required")
	}
	if cfg.Database.CountersCollection == "" {
		errors = append(errors, "COUNTERS_COLLECTION_NAME must not be empty")
	}
	if cfg.Database.CountersCollection != "" && cfg.Database.CountersCollection == cfg.Database.Collection {
		errors = append(errors, "COUNTERS_COLLECTION_NAME must differ from COLLECTION_NAME")
	}
	if cfg.Database.ConnectTimeout <= 0 {
		errors = append(errors, "DB_CONNECT_TIMEOUT must be positive")
	}
	if cfg.Database.OperationTimeout <= 0 {
		errors = append(errors, "DB_OPERATION_TIMEOUT must be positive")
	}
	if cfg.Database.MinPoolSize > cfg.Database.MaxPoolSize {
		errors = append(errors, "DB_MIN_POOL_SIZE must not exceed DB_MAX_POOL_SIZE")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.IdleTimeout <= 0 {
		errors = append(errors, "SERVER_IDLE_TIMEOUT must be positive")
	}

	// Validate claim configuration
	if cfg.Claim.SampleSize < 1 || cfg.Claim.SampleSize > 100 {
		errors = append(errors, "CLAIM_SAMPLE_SIZE must be between 1 and 100")
	}
	if cfg.Claim.MaxAttempts < 1 || cfg.Claim.MaxAttempts > 20 {
		errors = append(errors, "CLAIM_MAX_ATTEMPTS must be between 1 and 20")
	}

	// Validate security configuration
	if cfg.Security.AllowCredentials && slices.Contains(cfg.Security.AllowedOrigins, "*") {
		errors = append(errors, "CORS_ALLOW_CREDENTIALS cannot be combined with a wildcard CORS_ALLOWED_ORIGINS")
	}
	if cfg.Security.GlobalRateLimit < 0 || cfg.Security.PickRateLimit < 0 {
		errors = append(errors, "rate limits must not be negative")
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		if !slices.Contains(validLevels, cfg.Logging.Level) {
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}
	validOutputs := []string{"stdout", "file", "both"}
	if !slices.Contains(validOutputs, cfg.Logging.Output) {
		errors = append(errors, fmt.Sprintf("LOG_OUTPUT must be one of: %v", validOutputs))
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errors = append(errors, "LOG_FILE_PATH is required when logging to a file")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
		if cfg.Cache.CountTTL <= 0 {
			errors = append(errors, "CACHE_COUNT_TTL must be positive")
		}
	}
	if cfg.Cache.CountRefreshInterval < 0 {
		errors = append(errors, "CACHE_COUNT_REFRESH_INTERVAL must not be negative")
	}

	if cfg.Breaker.Enabled && cfg.Breaker.ConsecutiveFailures == 0 {
		errors = append(errors, "BREAKER_CONSECUTIVE_FAILURES must be positive when the breaker is enabled")
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
