package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds the filmrag service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Dense     DenseConfig     `yaml:"dense"`
	Sparse    SparseConfig    `yaml:"sparse"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Enhance   EnhanceConfig   `yaml:"enhance"`
	Search    SearchConfig    `yaml:"search"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Sync      SyncConfig      `yaml:"sync"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeoutSec  int             `yaml:"read_timeout_sec"`
	WriteTimeoutSec int             `yaml:"write_timeout_sec"`
	ShutdownSec     int             `yaml:"shutdown_timeout_sec"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig throttles the search routes per client address.
type RateLimitConfig struct {
	Enabled           *bool `yaml:"enabled"` // default: true
	RequestsPerMinute int   `yaml:"requests_per_minute"`
	Burst             int   `yaml:"burst"`
	MaxClients        int   `yaml:"max_clients"` // tracked addresses, least recently seen evicted first
	TrustForwardedFor bool  `yaml:"trust_forwarded_for"` // key clients by X-Forwarded-For behind a proxy
}

// On reports whether rate limiting is enabled.
func (r RateLimitConfig) On() bool {
	return r.Enabled == nil || *r.Enabled
}

// RedisConfig holds the connection shared by the result cache and the redis dense driver.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled              bool   `yaml:"enabled"`
	KeyPrefix            string `yaml:"key_prefix"`
	L1Size               int    `yaml:"l1_size"` // 0 disables the in-process tier
	SearchTTLSec         int    `yaml:"search_ttl_sec"`
	EmbeddingTTLSec      int    `yaml:"embedding_ttl_sec"`
	DocumentTTLSec       int    `yaml:"document_ttl_sec"`
	OpTimeoutMs          int    `yaml:"op_timeout_ms"`
	ReconnectIntervalSec int    `yaml:"reconnect_interval_sec"`
}

// EmbeddingConfig holds the OpenAI-compatible embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"`
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	BatchSize           int    `yaml:"batch_size"`
	TimeoutMs           int    `yaml:"timeout_ms"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
}

// DenseConfig selects and tunes the vector store.
type DenseConfig struct {
	Driver          string `yaml:"driver"` // redis, memory, none (default: redis)
	IndexName       string `yaml:"index_name"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	HNSWEFSearch    int    `yaml:"hnsw_ef_search"`
	TimeoutMs       int    `yaml:"timeout_ms"`
}

// SparseConfig holds keyword index settings.
type SparseConfig struct {
	RefreshIntervalMin int `yaml:"refresh_interval_min"`
	TopK               int `yaml:"top_k"`
}

// RerankConfig holds cross-encoder scorer settings.
type RerankConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	RawScores   bool   `yaml:"raw_scores"`
}

// EnhanceConfig holds query enhancement settings.
type EnhanceConfig struct {
	Enabled        bool       `yaml:"enabled"`
	DictionaryFile string     `yaml:"dictionary_file"`
	HyDE           HyDEConfig `yaml:"hyde"`
}

// HyDEConfig holds generative query augmentation settings.
type HyDEConfig struct {
	Enabled     bool    `yaml:"enabled"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	TopP        float32 `yaml:"top_p"`
	TimeoutMs   int     `yaml:"timeout_ms"`
}

// SearchConfig holds orchestrator settings.
type SearchConfig struct {
	RRFK             int `yaml:"rrf_k"`
	RecallMultiplier int `yaml:"recall_multiplier"`
	TimeoutMs        int `yaml:"timeout_ms"`
}

// CorpusConfig points at the film catalogue.
type CorpusConfig struct {
	Driver string `yaml:"driver"` // sqlite
	DSN    string `yaml:"dsn"`
}

// SyncConfig holds the index sync job settings.
type SyncConfig struct {
	Schedule   string `yaml:"schedule"` // cron spec, empty disables the scheduler
	LockFile   string `yaml:"lock_file"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8500
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.RateLimit.Enabled == nil {
		on := true
		c.HTTP.RateLimit.Enabled = &on
	}
	if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
		c.HTTP.RateLimit.RequestsPerMinute = 100
	}
	if c.HTTP.RateLimit.Burst <= 0 {
		c.HTTP.RateLimit.Burst = 20
	}
	if c.HTTP.RateLimit.MaxClients <= 0 {
		c.HTTP.RateLimit.MaxClients = 10000
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 5
	}

	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "rag:"
	}
	if c.Cache.SearchTTLSec <= 0 {
		c.Cache.SearchTTLSec = 600
	}
	if c.Cache.EmbeddingTTLSec <= 0 {
		c.Cache.EmbeddingTTLSec = 3600
	}
	if c.Cache.DocumentTTLSec <= 0 {
		c.Cache.DocumentTTLSec = 1800
	}
	if c.Cache.OpTimeoutMs <= 0 {
		c.Cache.OpTimeoutMs = 200
	}
	if c.Cache.ReconnectIntervalSec <= 0 {
		c.Cache.ReconnectIntervalSec = 5
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 32
	}
	if c.Embedding.TimeoutMs <= 0 {
		c.Embedding.TimeoutMs = 3000
	}

	if c.Dense.Driver == "" {
		c.Dense.Driver = "redis"
	}
	if c.Dense.IndexName == "" {
		c.Dense.IndexName = "rag:films:idx"
	}
	if c.Dense.HNSWM <= 0 {
		c.Dense.HNSWM = 16
	}
	if c.Dense.HNSWEFConstruct <= 0 {
		c.Dense.HNSWEFConstruct = 200
	}
	if c.Dense.HNSWEFSearch <= 0 {
		c.Dense.HNSWEFSearch = 64
	}
	if c.Dense.TimeoutMs <= 0 {
		c.Dense.TimeoutMs = 2000
	}

	if c.Sparse.RefreshIntervalMin <= 0 {
		c.Sparse.RefreshIntervalMin = 60
	}
	if c.Sparse.TopK <= 0 {
		c.Sparse.TopK = 20
	}

	if c.Rerank.BatchSize <= 0 {
		c.Rerank.BatchSize = 16
	}
	if c.Rerank.Concurrency <= 0 {
		c.Rerank.Concurrency = 2
	}
	if c.Rerank.TimeoutMs <= 0 {
		c.Rerank.TimeoutMs = 3000
	}

	if c.Enhance.HyDE.MaxTokens <= 0 {
		c.Enhance.HyDE.MaxTokens = 128
	}
	if c.Enhance.HyDE.Temperature <= 0 {
		c.Enhance.HyDE.Temperature = 0.7
	}
	if c.Enhance.HyDE.TopP <= 0 {
		c.Enhance.HyDE.TopP = 0.9
	}
	if c.Enhance.HyDE.TimeoutMs <= 0 {
		c.Enhance.HyDE.TimeoutMs = 5000
	}

	if c.Search.RRFK <= 0 {
		c.Search.RRFK = 60
	}
	if c.Search.RecallMultiplier <= 0 {
		c.Search.RecallMultiplier = 2
	}
	if c.Search.TimeoutMs <= 0 {
		c.Search.TimeoutMs = 2000
	}

	if c.Corpus.Driver == "" {
		c.Corpus.Driver = "sqlite"
	}
	if c.Sync.TimeoutSec <= 0 {
		c.Sync.TimeoutSec = 600
	}
	if c.Sync.LockFile == "" {
		c.Sync.LockFile = filepath.Join(os.TempDir(), "filmrag-sync.lock")
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Dense.Driver {
	case "redis", "memory", "none":
		// ok
	default:
		return fmt.Errorf("dense.driver must be \"redis\", \"memory\" or \"none\", got %q", c.Dense.Driver)
	}
	if c.NeedsRedis() && len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required when the cache or the redis dense driver is enabled")
	}
	if c.Corpus.Driver != "sqlite" {
		return fmt.Errorf("corpus.driver must be \"sqlite\", got %q", c.Corpus.Driver)
	}
	if c.Corpus.DSN == "" {
		return fmt.Errorf("corpus.dsn is required")
	}
	if c.Rerank.Enabled && c.Rerank.BaseURL == "" {
		return fmt.Errorf("rerank.base_url is required when rerank is enabled")
	}
	if c.Enhance.HyDE.Enabled && c.Enhance.HyDE.Model == "" {
		return fmt.Errorf("enhance.hyde.model is required when hyde is enabled")
	}
	if c.Sync.Schedule != "" {
		if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
			return fmt.Errorf("sync.schedule %q: %w", c.Sync.Schedule, err)
		}
	}
	return nil
}

// NeedsRedis reports whether any enabled component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.Cache.Enabled || c.Dense.Driver == "redis"
}

// TTLs returns the per-namespace cache lifetimes.
func (c *CacheConfig) TTLs() (search, embedding, document time.Duration) {
	return time.Duration(c.SearchTTLSec) * time.Second,
		time.Duration(c.EmbeddingTTLSec) * time.Second,
		time.Duration(c.DocumentTTLSec) * time.Second
}

// Millis converts a millisecond setting into a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
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
