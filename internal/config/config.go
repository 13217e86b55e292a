package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Auth       AuthConfig
	Redis      RedisConfig
	Index      IndexConfig
	Embedding  EmbeddingConfig
	Generation GenerationConfig
	Ingest     IngestConfig
	Retrieval  RetrievalConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	// Backend is "chromem" (embedded local), "qdrant" (managed remote)
	// or "pgvector" (Postgres).
	Backend string

	// Dimension is the embedding dimension the index stores. It must match
	// the embedding providers; a mismatch is fatal at startup.
	Dimension  int
	Collection string

	ChromemPath     string // "" keeps the embedded store in memory
	ChromemCompress bool

	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string
	QdrantUseTLS bool

	PostgresURL      string
	PostgresMaxConns int
}

type EmbeddingConfig struct {
	// Providers is the fallback order, first entry tried first.
	// Supported: "openai", "fastembed".
	Providers []string

	OpenAIKey   string
	OpenAIModel string
	BatchSize   int

	FastEmbedModel    string
	FastEmbedCacheDir string

	Timeout time.Duration
}

type GenerationConfig struct {
	// Providers is the fallback order, first entry tried first.
	// Supported: "openai", "anthropic", "ollama".
	Providers []string

	OpenAIKey      string
	OpenAIModel    string
	AnthropicKey   string
	AnthropicModel string
	OllamaURL      string
	OllamaModel    string

	Timeout time.Duration
}

type IngestConfig struct {
	MaxUploadBytes int64
	MinTextLen     int

	ChunkStrategy     string
	ChunkSize         int
	ChunkOverlap      int
	SentencesPerChunk int
	SentenceOverlap   int
}

type RetrievalConfig struct {
	DefaultTopK     int
	MaxTopK         int
	DefaultPageSize int
	CacheTTL        time.Duration
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	dimension, err := getEnvInt("INDEX_DIMENSION", 384)
	if err != nil {
		return nil, fmt.Errorf("invalid INDEX_DIMENSION: %w", err)
	}
	qdrantPort, err := getEnvInt("QDRANT_PORT", 6334)
	if err != nil {
		return nil, fmt.Errorf("invalid QDRANT_PORT: %w", err)
	}
	pgMaxConns, err := getEnvInt("PG_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid PG_MAX_CONNS: %w", err)
	}
	batchSize, err := getEnvInt("EMBEDDING_BATCH_SIZE", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBEDDING_BATCH_SIZE: %w", err)
	}
	maxUpload, err := getEnvInt("INGEST_MAX_UPLOAD_BYTES", 10<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_MAX_UPLOAD_BYTES: %w", err)
	}
	minTextLen, err := getEnvInt("INGEST_MIN_TEXT_LEN", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_MIN_TEXT_LEN: %w", err)
	}
	chunkSize, err := getEnvInt("CHUNK_SIZE", 800)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_SIZE: %w", err)
	}
	chunkOverlap, err := getEnvInt("CHUNK_OVERLAP", 150)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_OVERLAP: %w", err)
	}
	sentencesPerChunk, err := getEnvInt("CHUNK_SENTENCES", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_SENTENCES: %w", err)
	}
	sentenceOverlap, err := getEnvInt("CHUNK_SENTENCE_OVERLAP", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_SENTENCE_OVERLAP: %w", err)
	}
	defaultTopK, err := getEnvInt("RETRIEVAL_DEFAULT_TOP_K", 4)
	if err != nil {
		return nil, fmt.Errorf("invalid RETRIEVAL_DEFAULT_TOP_K: %w", err)
	}
	maxTopK, err := getEnvInt("RETRIEVAL_MAX_TOP_K", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid RETRIEVAL_MAX_TOP_K: %w", err)
	}
	defaultPageSize, err := getEnvInt("RETRIEVAL_DEFAULT_PAGE_SIZE", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid RETRIEVAL_DEFAULT_PAGE_SIZE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Index: IndexConfig{
			Backend:          getEnv("INDEX_BACKEND", "chromem"),
			Dimension:        dimension,
			Collection:       getEnv("INDEX_COLLECTION", "documents"),
			ChromemPath:      getEnv("CHROMEM_PATH", "chromem_store"),
			ChromemCompress:  getEnvBool("CHROMEM_COMPRESS", false),
			QdrantHost:       getEnv("QDRANT_HOST", "localhost"),
			QdrantPort:       qdrantPort,
			QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
			QdrantUseTLS:     getEnvBool("QDRANT_USE_TLS", false),
			PostgresURL:      getEnv("DATABASE_URL", ""),
			PostgresMaxConns: pgMaxConns,
		},
		Embedding: EmbeddingConfig{
			Providers:         getEnvList("EMBEDDING_PROVIDERS", []string{"fastembed"}),
			OpenAIKey:         getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:       getEnv("EMBEDDING_OPENAI_MODEL", "text-embedding-3-small"),
			BatchSize:         batchSize,
			FastEmbedModel:    getEnv("EMBEDDING_FASTEMBED_MODEL", "BAAI/bge-small-en-v1.5"),
			FastEmbedCacheDir: getEnv("EMBEDDING_FASTEMBED_CACHE_DIR", "local_cache"),
			Timeout:           getEnvDuration("EMBEDDING_TIMEOUT", 60*time.Second),
		},
		Generation: GenerationConfig{
			Providers:      getEnvList("GENERATION_PROVIDERS", []string{"openai", "anthropic"}),
			OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:    getEnv("GENERATION_OPENAI_MODEL", "gpt-4o-mini"),
			AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel: getEnv("GENERATION_ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
			OllamaURL:      getEnv("OLLAMA_URL", ""),
			OllamaModel:    getEnv("GENERATION_OLLAMA_MODEL", "llama3"),
			Timeout:        getEnvDuration("GENERATION_TIMEOUT", 60*time.Second),
		},
		Ingest: IngestConfig{
			MaxUploadBytes:    int64(maxUpload),
			MinTextLen:        minTextLen,
			ChunkStrategy:     getEnv("CHUNK_STRATEGY", "fixed"),
			ChunkSize:         chunkSize,
			ChunkOverlap:      chunkOverlap,
			SentencesPerChunk: sentencesPerChunk,
			SentenceOverlap:   sentenceOverlap,
		},
		Retrieval: RetrievalConfig{
			DefaultTopK:     defaultTopK,
			MaxTopK:         maxTopK,
			DefaultPageSize: defaultPageSize,
			CacheTTL:        getEnvDuration("RETRIEVAL_CACHE_TTL", 60*time.Second),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate rejects configurations that would otherwise fail per-request.
// Called once at process start; a failure here is fatal.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("missing required env var JWT_SECRET")
	}
	if c.Index.Dimension <= 0 {
		return fmt.Errorf("INDEX_DIMENSION must be positive, got %d", c.Index.Dimension)
	}
	switch c.Index.Backend {
	case "chromem", "qdrant", "pgvector":
	default:
		return fmt.Errorf("unknown INDEX_BACKEND %q (supported: chromem, qdrant, pgvector)", c.Index.Backend)
	}
	if c.Index.Backend == "pgvector" && c.Index.PostgresURL == "" {
		return fmt.Errorf("INDEX_BACKEND=pgvector requires DATABASE_URL")
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP %d must be less than CHUNK_SIZE %d", c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		return fmt.Errorf("INGEST_MAX_UPLOAD_BYTES must be positive")
	}
	if len(c.Embedding.Providers) == 0 {
		return fmt.Errorf("EMBEDDING_PROVIDERS must name at least one provider")
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("EMBEDDING_BATCH_SIZE must be positive")
	}
	if c.Retrieval.MaxTopK <= 0 || c.Retrieval.DefaultTopK <= 0 || c.Retrieval.DefaultPageSize <= 0 {
		return fmt.Errorf("retrieval limits must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
