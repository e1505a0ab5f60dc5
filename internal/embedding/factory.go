package embedding

import (
	"fmt"
	"time"
)

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderHash   = "hash"
)

// Config selects and configures an embedding provider.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	Dims     int
	CacheTTL time.Duration // 0 disables caching
}

// New builds the configured embedder, wrapped in a cache when CacheTTL > 0.
func New(cfg Config) (Embedder, error) {
	var e Embedder
	switch cfg.Provider {
	case ProviderOpenAI:
		e = NewOpenAIEmbedder(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Dims)
	case ProviderOllama:
		e = NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dims)
	case ProviderHash, "":
		e = NewHashEmbedder(cfg.Dims)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if cfg.CacheTTL > 0 {
		e = NewCached(e, cfg.CacheTTL)
	}
	return e, nil
}
