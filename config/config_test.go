package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rsamesh/adaptive"
	"github.com/hupe1980/rsamesh/core"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 4, cfg.Agents.Count)
	assert.True(t, cfg.RSA.Adaptive)
	assert.Nil(t, cfg.RSA.Seed)
	assert.Equal(t, adaptive.DefaultConfigs(), cfg.Tiers.Params())
	assert.Equal(t, BackendMock, cfg.Generation.Backend)
	assert.Equal(t, EmbedderHash, cfg.Embedding.Backend)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
agents:
  count: 6
  names: [Ada, Bolt]
  timeout: 30s
rsa:
  adaptive: false
  k: 3
  t: 2
  seed: 42
tiers:
  medium: {n: 4, k: 3, t: 2}
  thresholds: {simple: 10, medium: 50}
generation:
  backend: horde
  poll_interval: 2s
  max_polls: 60
embedding:
  cache:
    type: redis
    address: localhost:6379
    ttl: 1h
logging:
  level: debug
  format: text
metrics:
  enabled: true
`))
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Agents.Count)
	assert.Equal(t, []string{"Ada", "Bolt"}, cfg.Agents.Names)
	assert.Equal(t, 30*time.Second, cfg.Agents.Timeout)
	assert.Equal(t, 512, cfg.Agents.MaxLength, "untouched keys keep defaults")
	assert.False(t, cfg.RSA.Adaptive)
	require.NotNil(t, cfg.RSA.Seed)
	assert.Equal(t, uint64(42), *cfg.RSA.Seed)
	assert.Equal(t, core.Params{N: 4, K: 3, T: 2}, cfg.Tiers.Medium)
	assert.Equal(t, core.Params{N: 2, K: 1, T: 2}, cfg.Tiers.Simple)
	assert.Equal(t, adaptive.Thresholds{Simple: 10, Medium: 50}, cfg.Tiers.Thresholds)
	assert.Equal(t, BackendHorde, cfg.Generation.Backend)
	assert.Equal(t, 2*time.Second, cfg.Generation.PollInterval)
	assert.Equal(t, CacheRedis, cfg.Embedding.Cache.Type)
	assert.Equal(t, time.Hour, cfg.Embedding.Cache.TTL)
	assert.Equal(t, "default", cfg.Embedding.Cache.Namespace)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "rsamesh", cfg.Metrics.Namespace)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"no agents", "agents: {count: 0}", "agents.count"},
		{"bad temperature", "agents: {temperature: 3}", "agents.temperature"},
		{"k above n", "rsa: {adaptive: false, k: 5, t: 2}", "rsa"},
		{"bad tier", "tiers: {complex: {n: 2, k: 3, t: 1}}", "tiers.complex"},
		{"bad thresholds", "tiers: {thresholds: {simple: 70, medium: 60}}", "thresholds"},
		{"unknown backend", "generation: {backend: llama}", "generation.backend"},
		{"unknown embedder", "embedding: {backend: bert}", "embedding.backend"},
		{"redis without address", "embedding: {cache: {type: redis}}", "embedding.cache.address"},
		{"bad level", "logging: {level: loud}", "logging.level"},
		{"bad format", "logging: {format: xml}", "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.ErrorIs(t, err, core.ErrConfiguration)

			var ce *core.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("agents: [1, 2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rsamesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agents:\n  count: 3\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Agents.Count)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAPIKey(t *testing.T) {
	t.Setenv("RSAMESH_TEST_KEY", "secret")

	assert.Equal(t, "secret", GenerationConfig{APIKeyEnv: "RSAMESH_TEST_KEY"}.APIKey())
	assert.Empty(t, GenerationConfig{}.APIKey())
}
