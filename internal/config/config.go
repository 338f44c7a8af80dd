package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the querydocs configuration, shared by the API server
// and the ingestion worker.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Redis     RedisConfig     `yaml:"redis"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Index     IndexConfig     `yaml:"index"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Upload    UploadConfig    `yaml:"upload"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RedisConfig holds connection settings for the Redis instance that
// backs the job queue, the vector index and the embedding cache.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// ChatConfig holds the generative model settings.
type ChatConfig struct {
	Model string `yaml:"model"`
}

// IndexConfig holds vector collection settings.
type IndexConfig struct {
	Collection      string `yaml:"collection"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// IngestConfig holds chunking, worker pool and retry settings.
type IngestConfig struct {
	ChunkSize         int `yaml:"chunk_size"`
	ChunkOverlap      int `yaml:"chunk_overlap"`
	Concurrency       int `yaml:"concurrency"`
	MaxAttempts       int `yaml:"max_attempts"`
	EmbedBatchSize    int `yaml:"embed_batch_size"`
	RetryBackoffMSec  int `yaml:"retry_backoff_ms"`
	CallTimeoutSec    int `yaml:"call_timeout_sec"`
	ClaimIdleSec      int `yaml:"claim_idle_sec"`
	BlockTimeoutMSec  int `yaml:"block_timeout_ms"`
	JobStateTTLHours  int `yaml:"job_state_ttl_hours"`
}

// RetrievalConfig holds query-time settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// UploadConfig holds upload storage settings.
type UploadConfig struct {
	Dir          string `yaml:"dir"`
	MaxSizeBytes int64  `yaml:"max_size_bytes"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "querydocs:"
	}
	if c.Chat.Model == "" {
		c.Chat.Model = "gpt-4o-mini"
	}
	if c.Index.Collection == "" {
		c.Index.Collection = "pdf-docs"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 1000
	}
	if c.Ingest.ChunkOverlap <= 0 {
		c.Ingest.ChunkOverlap = 200
	}
	if c.Ingest.Concurrency <= 0 {
		c.Ingest.Concurrency = 4
	}
	if c.Ingest.MaxAttempts <= 0 {
		c.Ingest.MaxAttempts = 3
	}
	if c.Ingest.EmbedBatchSize <= 0 {
		c.Ingest.EmbedBatchSize = 32
	}
	if c.Ingest.RetryBackoffMSec <= 0 {
		c.Ingest.RetryBackoffMSec = 500
	}
	if c.Ingest.CallTimeoutSec <= 0 {
		c.Ingest.CallTimeoutSec = 30
	}
	if c.Ingest.ClaimIdleSec <= 0 {
		c.Ingest.ClaimIdleSec = 60
	}
	if c.Ingest.BlockTimeoutMSec <= 0 {
		c.Ingest.BlockTimeoutMSec = 5000
	}
	if c.Ingest.JobStateTTLHours <= 0 {
		c.Ingest.JobStateTTLHours = 7 * 24
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 3
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = "uploads"
	}
	if c.Upload.MaxSizeBytes <= 0 {
		c.Upload.MaxSizeBytes = 32 << 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf(
			"ingest.chunk_overlap (%d) must be smaller than ingest.chunk_size (%d)",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
