// Package config loads rsamesh settings from YAML.
//
// Missing keys keep their defaults, so a file only needs the values it
// changes:
//
//	agents:
//	  count: 6
//	generation:
//	  backend: openai
//	  model: gpt-4o-mini
//	embedding:
//	  cache:
//	    type: redis
//	    address: localhost:6379
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/rsamesh/adaptive"
	"github.com/hupe1980/rsamesh/core"
	"github.com/hupe1980/rsamesh/logging"
)

// Generation backends.
const (
	BackendMock      = "mock"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendHorde     = "horde"
)

// Embedding backends.
const (
	EmbedderHash   = "hash"
	EmbedderChar   = "char"
	EmbedderOpenAI = "openai"
)

// Embedding cache types.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the top-level configuration.
type Config struct {
	Agents     AgentsConfig     `yaml:"agents"`
	RSA        RSAConfig        `yaml:"rsa"`
	Tiers      TiersConfig      `yaml:"tiers"`
	Generation GenerationConfig `yaml:"generation"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// AgentsConfig describes the population.
type AgentsConfig struct {
	Count           int           `yaml:"count"`
	Names           []string      `yaml:"names,omitempty"` // cycled when shorter than count
	Role            string        `yaml:"role"`
	Timeout         time.Duration `yaml:"timeout"` // per capability call, 0 disables
	MaxLength       int           `yaml:"max_length"`
	Temperature     float64       `yaml:"temperature"`
	ContextCapacity int           `yaml:"context_capacity"`
}

// RSAConfig tunes the engine.
type RSAConfig struct {
	Adaptive       bool    `yaml:"adaptive"`
	K              int     `yaml:"k"` // default K when adaptive is off
	T              int     `yaml:"t"` // default T when adaptive is off
	Seed           *uint64 `yaml:"seed,omitempty"`
	MaxConcurrency int     `yaml:"max_concurrency"`
	MaxGenerations int     `yaml:"max_generations"`
}

// TiersConfig overrides the adaptive selector.
type TiersConfig struct {
	Simple     core.Params         `yaml:"simple"`
	Medium     core.Params         `yaml:"medium"`
	Complex    core.Params         `yaml:"complex"`
	Thresholds adaptive.Thresholds `yaml:"thresholds"`
}

// Params returns the tiers keyed for adaptive.SelectorOptions.
func (t TiersConfig) Params() map[adaptive.Tier]core.Params {
	return map[adaptive.Tier]core.Params{
		adaptive.TierSimple:  t.Simple,
		adaptive.TierMedium:  t.Medium,
		adaptive.TierComplex: t.Complex,
	}
}

// GenerationConfig selects the text generation backend.
type GenerationConfig struct {
	Backend     string        `yaml:"backend"`
	Model       string        `yaml:"model,omitempty"`
	APIKeyEnv   string        `yaml:"api_key_env,omitempty"` // environment variable holding the key
	BaseURL     string        `yaml:"base_url,omitempty"`
	MockLatency time.Duration `yaml:"mock_latency,omitempty"`

	// Horde only.
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	MaxPolls     int           `yaml:"max_polls,omitempty"`
	RateLimit    float64       `yaml:"rate_limit,omitempty"`
}

// APIKey resolves the key from APIKeyEnv; empty when unset.
func (g GenerationConfig) APIKey() string {
	if g.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(g.APIKeyEnv)
}

// EmbeddingConfig selects the embedding backend and its cache.
type EmbeddingConfig struct {
	Backend    string      `yaml:"backend"`
	Model      string      `yaml:"model,omitempty"`
	Dimensions int         `yaml:"dimensions"`
	Noise      float64     `yaml:"noise"` // hash embedder only
	Cache      CacheConfig `yaml:"cache"`
}

// CacheConfig configures embedding caching.
type CacheConfig struct {
	Type      string        `yaml:"type"`
	Address   string        `yaml:"address,omitempty"`
	Password  string        `yaml:"password,omitempty"`
	DB        int           `yaml:"db,omitempty"`
	Namespace string        `yaml:"namespace,omitempty"`
	TTL       time.Duration `yaml:"ttl,omitempty"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"` // json or text
	AddSource bool   `yaml:"add_source"`
}

// MetricsConfig toggles the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Default returns the built-in configuration: four mock agents, adaptive
// parameters, 384-dimensional hash embeddings and info level JSON logs.
func Default() *Config {
	tiers := adaptive.DefaultConfigs()

	return &Config{
		Agents: AgentsConfig{
			Count:           4,
			Role:            "assistant",
			MaxLength:       512,
			Temperature:     0.8,
			ContextCapacity: 100,
		},
		RSA: RSAConfig{
			Adaptive: true,
			K:        2,
			T:        3,
		},
		Tiers: TiersConfig{
			Simple:     tiers[adaptive.TierSimple],
			Medium:     tiers[adaptive.TierMedium],
			Complex:    tiers[adaptive.TierComplex],
			Thresholds: adaptive.DefaultThresholds(),
		},
		Generation: GenerationConfig{
			Backend: BackendMock,
		},
		Embedding: EmbeddingConfig{
			Backend:    EmbedderHash,
			Dimensions: 384,
			Noise:      0.1,
			Cache:      CacheConfig{Type: CacheNone, Namespace: "default"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Namespace: "rsamesh",
		},
	}
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

// Validate checks the configuration and returns the first problem as a
// *core.ConfigurationError.
func (c *Config) Validate() error {
	a := c.Agents
	if a.Count < 1 {
		return core.NewConfigurationError("agents.count", "must be >= 1, got %d", a.Count)
	}
	if a.MaxLength < 1 {
		return core.NewConfigurationError("agents.max_length", "must be >= 1, got %d", a.MaxLength)
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return core.NewConfigurationError("agents.temperature", "must be within [0, 2], got %v", a.Temperature)
	}
	if a.Timeout < 0 {
		return core.NewConfigurationError("agents.timeout", "must not be negative")
	}

	if !c.RSA.Adaptive {
		p := core.Params{N: a.Count, K: c.RSA.K, T: c.RSA.T}
		if err := p.Validate(); err != nil {
			return core.NewConfigurationError("rsa", "%v", err)
		}
	}
	if c.RSA.MaxConcurrency < 0 {
		return core.NewConfigurationError("rsa.max_concurrency", "must not be negative")
	}
	if c.RSA.MaxGenerations < 0 {
		return core.NewConfigurationError("rsa.max_generations", "must not be negative")
	}

	for tier, p := range c.Tiers.Params() {
		if err := p.Validate(); err != nil {
			return core.NewConfigurationError("tiers."+string(tier), "%v", err)
		}
	}
	if err := c.Tiers.Thresholds.Validate(); err != nil {
		return err
	}

	switch c.Generation.Backend {
	case BackendMock, BackendOpenAI, BackendAnthropic, BackendHorde:
	default:
		return core.NewConfigurationError("generation.backend", "unknown backend %q", c.Generation.Backend)
	}

	switch c.Embedding.Backend {
	case EmbedderHash, EmbedderChar, EmbedderOpenAI:
	default:
		return core.NewConfigurationError("embedding.backend", "unknown backend %q", c.Embedding.Backend)
	}
	if c.Embedding.Dimensions < 1 {
		return core.NewConfigurationError("embedding.dimensions", "must be >= 1, got %d", c.Embedding.Dimensions)
	}

	switch c.Embedding.Cache.Type {
	case "", CacheNone, CacheMemory:
	case CacheRedis:
		if c.Embedding.Cache.Address == "" {
			return core.NewConfigurationError("embedding.cache.address", "required for redis")
		}
	default:
		return core.NewConfigurationError("embedding.cache.type", "unknown cache %q", c.Embedding.Cache.Type)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return core.NewConfigurationError("logging.level", "%v", err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return core.NewConfigurationError("logging.format", "must be json or text, got %q", c.Logging.Format)
	}

	return nil
}
