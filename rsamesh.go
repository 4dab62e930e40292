// Package rsamesh wires configuration, backends, agents and the RSA engine
// into a ready to use Mesh. Most applications only need:
//
//  1. A config (config.Default, config.Load or a hand-built *config.Config)
//  2. New or NewFromConfig to build the Mesh
//  3. Run for full Recursive Self-Aggregation, SingleStep for the one shot
//     variant
//
// Backends named in the config can be replaced through Options, which is how
// tests plug in deterministic generators and embedders.
package rsamesh

import (
	"context"
	"errors"
	"fmt"
	"io"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/rsamesh/adaptive"
	"github.com/hupe1980/rsamesh/agent"
	"github.com/hupe1980/rsamesh/config"
	"github.com/hupe1980/rsamesh/core"
	"github.com/hupe1980/rsamesh/embedding"
	"github.com/hupe1980/rsamesh/embedding/rediscache"
	"github.com/hupe1980/rsamesh/engine"
	"github.com/hupe1980/rsamesh/logging"
	"github.com/hupe1980/rsamesh/memory"
	"github.com/hupe1980/rsamesh/metrics"
	"github.com/hupe1980/rsamesh/model"
	"github.com/hupe1980/rsamesh/model/anthropic"
	"github.com/hupe1980/rsamesh/model/horde"
	"github.com/hupe1980/rsamesh/model/openai"
	"github.com/hupe1980/rsamesh/sweep"
)

// DefaultNames are the agent display names used when the config lists none.
var DefaultNames = []string{"Aria", "Basil", "Clover", "Dusk", "Ember", "Fable", "Gleam", "Hollow"}

// Options configures a Mesh.
type Options struct {
	// Config defaults to config.Default().
	Config *config.Config

	// Logger overrides the logger built from Config.Logging.
	Logger logging.Logger

	// Generator and Embedder override the configured backends.
	Generator core.GenerationBackend
	Embedder  core.EmbeddingBackend

	// Registerer receives the metrics when Config.Metrics.Enabled is set.
	// Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// Callbacks are registered on every engine the Mesh builds.
	Callbacks []engine.Callback
}

// Mesh is the high-level façade over one engine and its backends.
type Mesh struct {
	cfg       *config.Config
	logger    logging.Logger
	gen       core.GenerationBackend
	emb       core.EmbeddingBackend
	selector  *adaptive.Selector
	callbacks []engine.Callback
	engine    *engine.Engine
	closers   []io.Closer
}

// New creates a Mesh. The configuration is validated before any backend is
// built.
func New(optFns ...func(o *Options)) (*Mesh, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		level, _ := logging.ParseLevel(cfg.Logging.Level)
		logger = logging.NewSlogLogger(level, cfg.Logging.Format, cfg.Logging.AddSource).WithComponent("rsamesh")
	}

	m := &Mesh{cfg: cfg, logger: logger, gen: opts.Generator, emb: opts.Embedder}

	if m.gen == nil {
		gen, err := NewGenerator(cfg.Generation)
		if err != nil {
			return nil, err
		}
		m.gen = gen
	}
	if m.emb == nil {
		emb, err := NewEmbedder(cfg.Embedding)
		if err != nil {
			return nil, err
		}
		m.emb = emb
	}

	cached, closer, err := m.withCache(m.emb)
	if err != nil {
		return nil, err
	}
	m.emb = cached
	if closer != nil {
		m.closers = append(m.closers, closer)
	}

	sel, err := adaptive.NewSelector(func(o *adaptive.SelectorOptions) {
		o.Configs = cfg.Tiers.Params()
		o.Thresholds = cfg.Tiers.Thresholds
	})
	if err != nil {
		return nil, err
	}
	m.selector = sel

	if cfg.Metrics.Enabled {
		m.callbacks = append(m.callbacks, metrics.NewCollector(opts.Registerer, cfg.Metrics.Namespace).Callbacks()...)
	}
	m.callbacks = append(m.callbacks, engine.NewLoggingCallback(engine.CallbackOnDegradedSlot, logger))
	m.callbacks = append(m.callbacks, opts.Callbacks...)

	eng, err := m.NewEngine(cfg.Agents.Count)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	m.engine = eng

	logger.Info("Mesh ready", "agents", cfg.Agents.Count, "generation", cfg.Generation.Backend,
		"embedding", cfg.Embedding.Backend, "cache", cfg.Embedding.Cache.Type, "adaptive", cfg.RSA.Adaptive)

	return m, nil
}

// NewFromConfig creates a Mesh from cfg.
func NewFromConfig(cfg *config.Config, optFns ...func(o *Options)) (*Mesh, error) {
	return New(append([]func(o *Options){func(o *Options) { o.Config = cfg }}, optFns...)...)
}

// NewGenerator builds the configured generation backend.
func NewGenerator(cfg config.GenerationConfig) (model.Model, error) {
	switch cfg.Backend {
	case config.BackendMock:
		return model.NewMockModel(func(o *model.MockOptions) { o.Latency = cfg.MockLatency }), nil
	case config.BackendOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			if key := cfg.APIKey(); key != "" {
				o.ClientOptions = append(o.ClientOptions, openaioption.WithAPIKey(key))
			}
			if cfg.BaseURL != "" {
				o.ClientOptions = append(o.ClientOptions, openaioption.WithBaseURL(cfg.BaseURL))
			}
		}), nil
	case config.BackendAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.APIKey = cfg.APIKey()
			if cfg.BaseURL != "" {
				o.ClientOptions = append(o.ClientOptions, anthropicoption.WithBaseURL(cfg.BaseURL))
			}
		}), nil
	case config.BackendHorde:
		return horde.NewModel(func(o *horde.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			if key := cfg.APIKey(); key != "" {
				o.APIKey = key
			}
			if cfg.BaseURL != "" {
				o.BaseURL = cfg.BaseURL
			}
			if cfg.PollInterval > 0 {
				o.PollInterval = cfg.PollInterval
			}
			if cfg.MaxPolls > 0 {
				o.MaxPolls = cfg.MaxPolls
			}
			if cfg.RateLimit > 0 {
				o.RateLimit = cfg.RateLimit
			}
		}), nil
	default:
		return nil, core.NewConfigurationError("generation.backend", "unknown backend %q", cfg.Backend)
	}
}

// NewEmbedder builds the configured embedding backend without its cache.
func NewEmbedder(cfg config.EmbeddingConfig) (core.EmbeddingBackend, error) {
	switch cfg.Backend {
	case config.EmbedderHash:
		return embedding.NewHashEmbedder(func(o *embedding.HashOptions) {
			o.Dimensions = cfg.Dimensions
			o.Noise = cfg.Noise
		}), nil
	case config.EmbedderChar:
		return embedding.NewCharEmbedder(cfg.Dimensions), nil
	case config.EmbedderOpenAI:
		return openai.NewEmbedder(func(o *openai.EmbedderOptions) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Dimensions = cfg.Dimensions
		}), nil
	default:
		return nil, core.NewConfigurationError("embedding.backend", "unknown backend %q", cfg.Backend)
	}
}

func (m *Mesh) withCache(emb core.EmbeddingBackend) (core.EmbeddingBackend, io.Closer, error) {
	c := m.cfg.Embedding.Cache
	switch c.Type {
	case "", config.CacheNone:
		return emb, nil, nil
	case config.CacheMemory:
		return embedding.NewCachedEmbedder(emb, embedding.NewMemoryCache(), m.logger), nil, nil
	case config.CacheRedis:
		cache, err := rediscache.New(&redis.Options{Addr: c.Address, Password: c.Password, DB: c.DB}, func(o *rediscache.Options) {
			if c.Namespace != "" {
				o.Namespace = c.Namespace
			}
			o.TTL = c.TTL
		})
		if err != nil {
			return nil, nil, fmt.Errorf("embedding cache: %w", err)
		}
		return embedding.NewCachedEmbedder(emb, cache, m.logger), cache, nil
	default:
		return nil, nil, core.NewConfigurationError("embedding.cache.type", "unknown cache %q", c.Type)
	}
}

// Agents builds n agents sharing the mesh backends. Display names cycle
// through the configured names, numbered from the second pass on.
func (m *Mesh) Agents(n int) []*agent.Agent {
	names := m.cfg.Agents.Names
	if len(names) == 0 {
		names = DefaultNames
	}

	ac := m.cfg.Agents
	agents := make([]*agent.Agent, n)
	for i := range agents {
		name := names[i%len(names)]
		if pass := i / len(names); pass > 0 {
			name = fmt.Sprintf("%s %d", name, pass+1)
		}
		agents[i] = agent.New(fmt.Sprintf("agent-%d", i), name, m.gen, m.emb, func(o *agent.Options) {
			o.Role = ac.Role
			o.MaxLength = ac.MaxLength
			o.Temperature = ac.Temperature
			o.Timeout = ac.Timeout
			o.ContextCapacity = ac.ContextCapacity
			o.Logger = m.logger
		})
	}
	return agents
}

// NewEngine builds an engine over n fresh agents with its own store. It
// shares the selector and callbacks of the mesh.
func (m *Mesh) NewEngine(n int) (*engine.Engine, error) {
	rsa := m.cfg.RSA
	return engine.New(m.Agents(n), func(o *engine.Options) {
		o.Selector = m.selector
		o.Adaptive = rsa.Adaptive
		o.DefaultK = rsa.K
		o.DefaultT = rsa.T
		o.MaxConcurrency = rsa.MaxConcurrency
		o.MaxGenerations = rsa.MaxGenerations
		o.Callbacks = m.callbacks
		o.Logger = m.logger
		if rsa.Seed != nil {
			o.Sampler = core.NewSampler(*rsa.Seed)
		}
	})
}

// SweepFactory adapts NewEngine for parameter sweeps.
func (m *Mesh) SweepFactory() sweep.Factory { return m.NewEngine }

// Run executes Recursive Self-Aggregation for query.
func (m *Mesh) Run(ctx context.Context, query string, optFns ...func(o *engine.RunOptions)) (*core.Result, error) {
	return m.engine.Run(ctx, query, optFns...)
}

// SingleStep runs one-shot aggregation over k candidates.
func (m *Mesh) SingleStep(ctx context.Context, query string, k int, optFns ...func(o *engine.RunOptions)) (*core.SingleStepResult, error) {
	return m.engine.SingleStep(ctx, query, k, optFns...)
}

// Estimate scores query with the selector's estimator.
func (m *Mesh) Estimate(query string) adaptive.Selection { return m.selector.Select(query) }

// Engine returns the underlying engine.
func (m *Mesh) Engine() *engine.Engine { return m.engine }

// Selector returns the adaptive selector shared by all engines of the mesh.
func (m *Mesh) Selector() *adaptive.Selector { return m.selector }

// Store returns the store of the default engine.
func (m *Mesh) Store() *memory.Store { return m.engine.Store() }

// ResetStore clears the store of the default engine.
func (m *Mesh) ResetStore() { m.engine.ResetStore() }

// Logger returns the mesh logger.
func (m *Mesh) Logger() logging.Logger { return m.logger }

// Config returns the configuration the mesh was built from.
func (m *Mesh) Config() *config.Config { return m.cfg }

// Close releases external resources such as the Redis cache connection.
func (m *Mesh) Close() error {
	var errs []error
	for _, c := range m.closers {
		errs = append(errs, c.Close())
	}
	m.closers = nil
	return errors.Join(errs...)
}
