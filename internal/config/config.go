// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string

	CatalogPath string

	StoreType     string
	StoreDSN      string
	StoreUsername string
	StorePassword string
	StoreDBName   string

	EmbeddingModel     string
	EmbeddingBatchSize int
	// EmbeddingRateLimit is embeddings requests per second; 0 disables limiting.
	EmbeddingRateLimit float64
	// QueryCacheSize is the number of cached question embeddings; 0 disables the cache.
	QueryCacheSize int

	ChatModel string
	TopK      int

	Port                string
	LogLevel            string
	MaxRequestBodyBytes int64
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

// getEnvAsFloat retrieves an environment variable as a float or returns a default value.
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

// Load reads configuration from environment variables and returns a Config struct.
// It loads a .env file if one exists. OPENAI_API_KEY is required.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable is required but not set")
	}

	topK := getEnvAsInt("TOP_K", 5)
	if topK <= 0 {
		return nil, errors.New("TOP_K must be a positive integer")
	}

	batchSize := getEnvAsInt("EMBEDDING_BATCH_SIZE", 100)
	if batchSize < 1 || batchSize > 100 {
		return nil, fmt.Errorf("EMBEDDING_BATCH_SIZE must be between 1 and 100, got %d", batchSize)
	}

	rateLimit := getEnvAsFloat("EMBEDDING_RATE_LIMIT", 0)
	if rateLimit < 0 {
		return nil, errors.New("EMBEDDING_RATE_LIMIT must not be negative")
	}

	cacheSize := getEnvAsInt("QUERY_CACHE_SIZE", 1000)
	if cacheSize < 0 {
		return nil, errors.New("QUERY_CACHE_SIZE must not be negative")
	}

	maxBody := getEnvAsInt("MAX_REQUEST_BODY_BYTES", 1<<20)
	if maxBody <= 0 {
		return nil, errors.New("MAX_REQUEST_BODY_BYTES must be a positive integer")
	}

	cfg := &Config{
		OpenAIAPIKey:  apiKey,
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		CatalogPath: getEnv("CATALOG_PATH", "data/movies500Trimmed.csv"),

		StoreType:     getEnv("STORE_TYPE", "sqlite"),
		StoreDSN:      getEnv("STORE_DSN", "storage/movies.db"),
		StoreUsername: getEnv("STORE_USERNAME", ""),
		StorePassword: getEnv("STORE_PASSWORD", ""),
		StoreDBName:   getEnv("STORE_DB_NAME", ""),

		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingBatchSize: batchSize,
		EmbeddingRateLimit: rateLimit,
		QueryCacheSize:     cacheSize,

		ChatModel: getEnv("CHAT_MODEL", "gpt-4o-mini"),
		TopK:      topK,

		Port:                getEnv("PORT", "8000"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		MaxRequestBodyBytes: int64(maxBody),
	}

	return cfg, nil
}
