package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic application metadata.
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"` // "development" or "production"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address         string `yaml:"address"`         // listen address, e.g. ":8080"
	ShutdownTimeout string `yaml:"shutdownTimeout"` // e.g. "10s"
	WebRoot         string `yaml:"webRoot"`         // directory with the static chat UI
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// MySQLConfig holds the metadata database connection settings.
type MySQLConfig struct {
	Address         string `yaml:"address"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	MaxOpenConns    int    `yaml:"maxOpenConns"`
	MaxIdleConns    int    `yaml:"maxIdleConns"`
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // seconds
}

// MilvusConfig holds the vector database connection and collection settings.
type MilvusConfig struct {
	Address        string `yaml:"address"`
	CollectionName string `yaml:"collectionName"`
	EmbeddingDim   int    `yaml:"embeddingDim"` // must match the embedding model output
	IndexNlist     int    `yaml:"indexNlist"`   // IVF_FLAT nlist parameter
	SearchNprobe   int    `yaml:"searchNprobe"` // IVF_FLAT nprobe parameter
}

// MinIOConfig holds the object storage connection settings.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

// RedisConfig holds the answer-cache connection settings.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig holds the event broker settings.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// StorageConfig selects and configures the uploaded-file store.
type StorageConfig struct {
	Provider string      `yaml:"provider"` // "local" or "minio"
	LocalDir string      `yaml:"localDir"` // flat directory for the "local" provider
	MinIO    MinIOConfig `yaml:"minio"`
}

// OpenAIConfig holds credentials and model names for the OpenAI-compatible API.
// APIKey may be left empty in the file and provided via OPENAI_API_KEY.
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"` // optional, for compatible endpoints
	Model   string `yaml:"model"`
}

// LLMConfig holds the generation model settings.
type LLMConfig struct {
	Provider string       `yaml:"provider"` // "openai"
	OpenAI   OpenAIConfig `yaml:"openai"`
}

// EmbeddingConfig holds the embedding model settings.
type EmbeddingConfig struct {
	Provider string       `yaml:"provider"` // "openai"
	OpenAI   OpenAIConfig `yaml:"openai"`
}

// RAGConfig holds the knobs of the ingestion and question-answering pipelines.
type RAGConfig struct {
	ChunkSize      int    `yaml:"chunkSize"`      // chunk budget in runes
	TopK           int    `yaml:"topK"`           // retrieved chunks per question
	MaxRetries     int    `yaml:"maxRetries"`     // extra attempts for embedding/generation calls
	RequestTimeout string `yaml:"requestTimeout"` // per external call, e.g. "30s"
	AnswerCacheTTL string `yaml:"answerCacheTTL"` // e.g. "10m"; empty disables the cache
}

// RateLimiterConfig configures the API rate limiting middleware.
type RateLimiterConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Algorithm string  `yaml:"algorithm"` // "tokenBucket" or "fixedWindow"
	Rate      float64 `yaml:"rate"`      // tokens per second (tokenBucket)
	Capacity  int     `yaml:"capacity"`  // bucket size (tokenBucket)
	Limit     int     `yaml:"limit"`     // requests per window (fixedWindow)
	Window    string  `yaml:"window"`    // e.g. "1m" (fixedWindow)
}

// MiddlewareConfig groups middleware settings.
type MiddlewareConfig struct {
	RateLimiter RateLimiterConfig `yaml:"rateLimiter"`
}

// DatabaseConfigs groups all backing store settings.
type DatabaseConfigs struct {
	MySQL  MySQLConfig  `yaml:"mysql"`
	Milvus MilvusConfig `yaml:"milvus"`
	Redis  RedisConfig  `yaml:"redis"`
	Kafka  KafkaConfig  `yaml:"kafka"`
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Logger     LoggerConfig     `yaml:"logger"`
	Storage    StorageConfig    `yaml:"storage"`
	LLM        LLMConfig        `yaml:"llm"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	RAG        RAGConfig        `yaml:"rag"`
	Databases  DatabaseConfigs  `yaml:"databases"`
	Middleware MiddlewareConfig `yaml:"middleware"`
}

// LoadConfig reads and parses the YAML configuration file at path.
// Empty API keys are backfilled from OPENAI_API_KEY so secrets can stay
// out of the file.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if cfg.LLM.OpenAI.APIKey == "" {
			cfg.LLM.OpenAI.APIKey = key
		}
		if cfg.Embedding.OpenAI.APIKey == "" {
			cfg.Embedding.OpenAI.APIKey = key
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = 4
	}
	if c.RAG.MaxRetries < 0 {
		c.RAG.MaxRetries = 0
	}
	if c.RAG.RequestTimeout == "" {
		c.RAG.RequestTimeout = "30s"
	}
	if c.Storage.Provider == "" {
		c.Storage.Provider = "local"
	}
	if c.Storage.LocalDir == "" {
		c.Storage.LocalDir = "uploads"
	}
	if c.Databases.Milvus.CollectionName == "" {
		c.Databases.Milvus.CollectionName = "document_chunks"
	}
	if c.Databases.Milvus.IndexNlist <= 0 {
		c.Databases.Milvus.IndexNlist = 128
	}
	if c.Databases.Milvus.SearchNprobe <= 0 {
		c.Databases.Milvus.SearchNprobe = 10
	}
}

// RequestTimeout returns the parsed per-call timeout for external APIs.
func (c *RAGConfig) ParsedRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ParsedAnswerCacheTTL returns the answer cache TTL, zero when caching is off.
func (c *RAGConfig) ParsedAnswerCacheTTL() time.Duration {
	if c.AnswerCacheTTL == "" {
		return 0
	}
	d, err := time.ParseDuration(c.AnswerCacheTTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
