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
	Port        string
	GinMode     string
	CORSOrigins []string

	JWTSecret string

	SQLitePath string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Gemini
	GeminiAPIKey    string
	GenerativeModel string
	EmbeddingModel  string

	// Qdrant
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// Retrieval / indexing
	VectorDimensions  int
	EmbeddingMaxChars int
	ScoreThreshold    float64
	ChatSearchLimit   int
	DocSearchLimit    int
	MaxChunkSize      int
	UpsertBatchSize   int
	UpsertBatchDelay  time.Duration

	// Dataset loading
	EncyclopediaDelay time.Duration
	GeneratedDelay    time.Duration

	// Uploads
	MaxFileSize         int64
	AllowedExtensions   []string
	FileStorageDir      string
	SyncProcessingLimit int64

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	EmbeddingCacheTTL time.Duration
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		JWTSecret: getEnv("JWT_SECRET", ""),

		SQLitePath: getEnv("SQLITE_PATH", "./data/platform.db"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GenerativeModel: getEnv("GENERATIVE_MODEL", "gemini-2.0-flash"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-004"),

		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "learning_content"),

		VectorDimensions:  getEnvInt("VECTOR_DIM", 768),
		EmbeddingMaxChars: getEnvInt("EMBEDDING_MAX_CHARS", 8192),
		ScoreThreshold:    getEnvFloat64("SCORE_THRESHOLD", 0.2),
		ChatSearchLimit:   getEnvInt("CHAT_SEARCH_LIMIT", 5),
		DocSearchLimit:    getEnvInt("DOC_SEARCH_LIMIT", 3),
		MaxChunkSize:      getEnvInt("MAX_CHUNK_SIZE", 1000),
		UpsertBatchSize:   getEnvInt("UPSERT_BATCH_SIZE", 50),
		UpsertBatchDelay:  time.Duration(getEnvInt("UPSERT_BATCH_DELAY_MS", 500)) * time.Millisecond,

		EncyclopediaDelay: time.Duration(getEnvInt("ENCYCLOPEDIA_DELAY_MS", 200)) * time.Millisecond,
		GeneratedDelay:    time.Duration(getEnvInt("GENERATED_DELAY_MS", 2000)) * time.Millisecond,

		MaxFileSize:         getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB
		AllowedExtensions:   strings.Split(getEnv("ALLOWED_FILE_EXTENSIONS", ".pdf,.txt"), ","),
		FileStorageDir:      getEnv("FILE_STORAGE_DIR", "./storage"),
		SyncProcessingLimit: getEnvInt64("SYNC_PROCESSING_LIMIT", 20971520), // 20MB

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		EmbeddingCacheTTL: time.Duration(getEnvInt("EMBEDDING_CACHE_TTL", 3600)) * time.Second,
	}

	// Validate required fields. GEMINI_API_KEY is deliberately optional: the AI
	// adapters degrade to local fallbacks when it is absent.
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}

	if cfg.VectorDimensions <= 0 {
		return nil, fmt.Errorf("VECTOR_DIM must be positive")
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

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
