// Package config loads tutor settings from defaults, an optional YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/sat-tutor/internal/embedding"
	"github.com/rcliao/sat-tutor/internal/llm"
	"github.com/rcliao/sat-tutor/internal/memory"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	MaxTokens          int    `yaml:"max_tokens"`
	Model              string `yaml:"model"`
	DBPath             string `yaml:"db_path"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`
	StoreBackend       string `yaml:"store_backend"`
	PrunePolicy        string `yaml:"prune_policy"`
	MaxRelevantChunks  int    `yaml:"max_relevant_chunks"`

	Embedding EmbeddingConfig `yaml:"embedding"`
	OpenAI    OpenAIConfig    `yaml:"openai"`

	LogLevel    string `yaml:"log_level"`
	Environment string `yaml:"environment"`
}

type EmbeddingConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"-"` // environment only
	BaseURL string `yaml:"base_url"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		MaxTokens:          memory.DefaultMaxTokens,
		Model:              memory.DefaultModel,
		DBPath:             "data/memory.db",
		EmbeddingDimension: 1536,
		StoreBackend:       BackendSQLite,
		PrunePolicy:        memory.PolicyEvict,
		MaxRelevantChunks:  memory.DefaultMaxRelevantChunks,
		Embedding: EmbeddingConfig{
			Timeout:  embedding.DefaultTimeout,
			CacheTTL: 30 * time.Minute,
		},
		Environment: "development",
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips it. A .env file in the working directory is honoured but never
// overrides variables already set in the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = embedding.ProviderHash
		if cfg.OpenAI.APIKey != "" {
			cfg.Embedding.Provider = embedding.ProviderOpenAI
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.MaxTokens = getEnvInt("SAT_TUTOR_MAX_TOKENS", c.MaxTokens)
	c.Model = getEnv("SAT_TUTOR_MODEL", c.Model)
	c.DBPath = getEnv("SAT_TUTOR_DB", c.DBPath)
	c.EmbeddingDimension = getEnvInt("SAT_TUTOR_EMBED_DIM", c.EmbeddingDimension)
	c.StoreBackend = getEnv("SAT_TUTOR_STORE_BACKEND", c.StoreBackend)
	c.PrunePolicy = getEnv("SAT_TUTOR_PRUNE_POLICY", c.PrunePolicy)
	c.MaxRelevantChunks = getEnvInt("SAT_TUTOR_MAX_RELEVANT", c.MaxRelevantChunks)

	c.Embedding.Provider = getEnv("SAT_TUTOR_EMBED_PROVIDER", c.Embedding.Provider)
	c.Embedding.Model = getEnv("SAT_TUTOR_EMBED_MODEL", c.Embedding.Model)
	c.Embedding.URL = getEnv("SAT_TUTOR_EMBED_URL", c.Embedding.URL)
	c.Embedding.Timeout = getEnvDuration("SAT_TUTOR_EMBED_TIMEOUT", c.Embedding.Timeout)
	c.Embedding.CacheTTL = getEnvDuration("SAT_TUTOR_EMBED_CACHE_TTL", c.Embedding.CacheTTL)

	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)

	c.LogLevel = getEnv("SAT_TUTOR_LOG_LEVEL", c.LogLevel)
	c.Environment = strings.ToLower(getEnv("ENVIRONMENT", c.Environment))
}

func (c *Config) Validate() error {
	var errs []error
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens))
	}
	if c.EmbeddingDimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding_dimension must be positive, got %d", c.EmbeddingDimension))
	}
	if c.MaxRelevantChunks < 0 {
		errs = append(errs, fmt.Errorf("max_relevant_chunks must not be negative, got %d", c.MaxRelevantChunks))
	}
	switch c.StoreBackend {
	case BackendSQLite, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.StoreBackend))
	}
	switch c.PrunePolicy {
	case memory.PolicyEvict, memory.PolicySummarize:
	default:
		errs = append(errs, fmt.Errorf("unknown prune policy %q", c.PrunePolicy))
	}
	switch c.Embedding.Provider {
	case embedding.ProviderOpenAI, embedding.ProviderOllama, embedding.ProviderHash, "":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}
	if c.StoreBackend == BackendSQLite && c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required for the sqlite backend"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *Config) IsProduction() bool { return c.Environment == "production" }

// EmbeddingOptions returns the embedder factory settings.
func (c *Config) EmbeddingOptions() embedding.Config {
	return embedding.Config{
		Provider: c.Embedding.Provider,
		Model:    c.Embedding.Model,
		BaseURL:  c.embeddingURL(),
		APIKey:   c.OpenAI.APIKey,
		Dims:     c.EmbeddingDimension,
		CacheTTL: c.Embedding.CacheTTL,
	}
}

func (c *Config) embeddingURL() string {
	if c.Embedding.URL != "" {
		return c.Embedding.URL
	}
	if c.Embedding.Provider == embedding.ProviderOpenAI {
		return c.OpenAI.BaseURL
	}
	return ""
}

// LLMOptions returns the completion provider settings.
func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		APIKey:  c.OpenAI.APIKey,
		BaseURL: c.OpenAI.BaseURL,
		Model:   c.Model,
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
