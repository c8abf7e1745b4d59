package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL   string
	JWTSecret     string
	JWTExpiration time.Duration
	Port          int

	// open ai
	OpenAIKey            string
	OpenAIEmbeddingModel string
	OpenAIChatModel      string

	// vector store: "pgvector" or "qdrant"
	VectorStore        string
	QdrantAddr         string
	EmbeddingDimension int
	CollectionPrefix   string

	// rag config
	ChunkSize       int
	ChunkOverlap    int
	TopKResults     int
	MaxContextChars int

	// indexing pipeline
	IndexWorkers    int
	ChunkRetries    int
	RetryBaseDelay  time.Duration
	UpstreamTimeout time.Duration
}

func Load() *Config {
	godotenv.Load()
	jwtExp, _ := time.ParseDuration(getEnv("JWT_EXPIRATION", "168h"))

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		port = 8080
	}

	return &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTExpiration: jwtExp,
		Port:          port,

		// OpenAI
		OpenAIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenAIEmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		OpenAIChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),

		// Vector store
		VectorStore:        getEnv("VECTOR_STORE", "pgvector"),
		QdrantAddr:         getEnv("QDRANT_ADDR", "localhost:6334"),
		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 1536),
		CollectionPrefix:   getEnv("COLLECTION_PREFIX", "doc"),

		// RAG Config
		ChunkSize:       getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:    getEnvInt("CHUNK_OVERLAP", 200),
		TopKResults:     getEnvInt("TOP_K_RESULTS", 6),
		MaxContextChars: getEnvInt("MAX_CONTEXT_CHARS", 8000),

		// Indexing pipeline
		IndexWorkers:    getEnvInt("INDEX_WORKERS", 4),
		ChunkRetries:    getEnvInt("CHUNK_RETRIES", 2),
		RetryBaseDelay:  getEnvDuration("RETRY_BASE_DELAY", 500*time.Millisecond),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
	}

}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
