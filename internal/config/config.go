package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the gateway.
type Config struct {
	HTTPPort    string
	Database    DatabaseConfig
	Cache       CacheConfig
	Redis       RedisConfig
	Providers   ProvidersConfig
	MediaStore  MediaStoreConfig
	LedgerQueue LedgerQueueConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// CacheConfig holds cache settings
type CacheConfig struct {
	IdentityCacheSize int
	IdentityCacheTTL  time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ProvidersConfig holds vendor credentials and call tuning
type ProvidersConfig struct {
	GeminiAPIKey string
	FalAPIKey    string

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	PollInterval time.Duration
	PollDeadline time.Duration
}

// MediaStoreConfig holds the S3 settings for generated asset storage
type MediaStoreConfig struct {
	Bucket        string
	Region        string
	Prefix        string
	PublicBaseURL string
}

// LedgerQueueConfig tunes the async usage-record worker
type LedgerQueueConfig struct {
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	falKey := os.Getenv("FAL_KEY")
	if falKey == "" {
		return nil, fmt.Errorf("FAL_KEY is required")
	}

	bucket := os.Getenv("MEDIA_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("MEDIA_S3_BUCKET is required")
	}

	cfg := &Config{
		HTTPPort: getEnvString("HTTP_PORT", "8080"),
		Database: DatabaseConfig{
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Cache: CacheConfig{
			IdentityCacheSize: getEnvInt("CACHE_IDENTITY_SIZE", 1000),
			IdentityCacheTTL:  getEnvDuration("CACHE_IDENTITY_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Providers: ProvidersConfig{
			GeminiAPIKey:     geminiKey,
			FalAPIKey:        falKey,
			RetryMaxAttempts: getEnvInt("PROVIDER_RETRY_MAX_ATTEMPTS", 3),
			RetryBaseDelay:   getEnvDuration("PROVIDER_RETRY_BASE_DELAY", 1*time.Second),
			PollInterval:     getEnvDuration("VIDEO_POLL_INTERVAL", 10*time.Second),
			PollDeadline:     getEnvDuration("VIDEO_POLL_DEADLINE", 6*time.Minute),
		},
		MediaStore: MediaStoreConfig{
			Bucket:        bucket,
			Region:        getEnvString("MEDIA_S3_REGION", "us-east-1"),
			Prefix:        getEnvString("MEDIA_S3_PREFIX", "generated/"),
			PublicBaseURL: getEnvString("MEDIA_PUBLIC_BASE_URL", ""),
		},
		LedgerQueue: LedgerQueueConfig{
			BatchSize:    getEnvInt("LEDGER_QUEUE_BATCH_SIZE", 10),
			PollInterval: getEnvDuration("LEDGER_QUEUE_POLL_INTERVAL", 1*time.Second),
			MaxRetries:   getEnvInt("LEDGER_QUEUE_MAX_RETRIES", 3),
			RetryBackoff: getEnvDuration("LEDGER_QUEUE_RETRY_BACKOFF", 1*time.Second),
		},
	}

	return cfg, nil
}
