package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	MongoURI string
	DBName   string

	// Redis (embedding cache, rate limiting, asynq broker)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Chat + embedding backends
	GeminiAPIKey          string
	GeminiAPIURL          string
	EmbeddingsProvider    string // "google" (default), "local"
	GoogleEmbeddingsModel string // e.g. "text-embedding-004"
	EmbeddingDimensions   int
	LocalEmbedderDim      int
	EmbeddingRPS          float64
	EmbedCacheTTL         time.Duration

	// Chunking
	ChunkSize      int
	ChunkOverlap   int
	ChunkSeparator string

	// Retrieval
	TopK       int
	AskTimeout time.Duration

	// Uploads
	MaxFileSize         int64
	AllowedTypes        []string
	FileStorageDir      string
	SyncProcessingLimit int64

	// Sessions
	SessionTokenSecret string
	SessionTTL         time.Duration
	SessionSweepEvery  time.Duration

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Chunk storage compression
	CompressionAlgorithm string
	CompressionMinBytes  int

	// Telemetry
	OTLPEndpoint  string
	TracingEnable bool
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/pdf_qa"),
		DBName:   getEnv("DB_NAME", "pdf_qa"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiAPIURL:          getEnv("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"),
		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		EmbeddingDimensions:   getEnvInt("EMBEDDING_DIMENSIONS", 768),
		LocalEmbedderDim:      getEnvInt("LOCAL_EMBEDDER_DIM", 256),
		EmbeddingRPS:          getEnvFloat("EMBEDDING_RPS", 5),
		EmbedCacheTTL:         getEnvDuration("EMBED_CACHE_TTL", 24*time.Hour),

		ChunkSize:      getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", 200),
		ChunkSeparator: getEnv("CHUNK_SEPARATOR", "\n"),

		TopK:       getEnvInt("RETRIEVAL_TOP_K", 4),
		AskTimeout: getEnvDuration("ASK_TIMEOUT", 60*time.Second),

		MaxFileSize:         getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB
		AllowedTypes:        strings.Split(getEnv("ALLOWED_FILE_TYPES", ".pdf,.csv,.xlsx,.html,.htm,.txt"), ","),
		FileStorageDir:      getEnv("FILE_STORAGE_DIR", "./storage"),
		SyncProcessingLimit: getEnvInt64("SYNC_PROCESSING_LIMIT", 20971520), // 20MB: larger uploads go to the worker

		SessionTokenSecret: getEnv("SESSION_TOKEN_SECRET", ""),
		SessionTTL:         getEnvDuration("SESSION_TTL", 2*time.Hour),
		SessionSweepEvery:  getEnvDuration("SESSION_SWEEP_EVERY", 10*time.Minute),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		CompressionAlgorithm: getEnv("CHUNK_COMPRESSION", "brotli"),
		CompressionMinBytes:  getEnvInt("CHUNK_COMPRESSION_MIN_BYTES", 512),

		OTLPEndpoint:  getEnv("OTLP_ENDPOINT", "localhost:4317"),
		TracingEnable: getEnvBool("TRACING_ENABLE", false),
	}

	// Validate required fields
	if cfg.SessionTokenSecret == "" {
		return nil, fmt.Errorf("SESSION_TOKEN_SECRET is required")
	}
	if cfg.EmbeddingsProvider == "google" && cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required when EMBEDDINGS_PROVIDER=google")
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
