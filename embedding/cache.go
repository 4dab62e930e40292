package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/hupe1980/rsamesh/core"
	"github.com/hupe1980/rsamesh/logging"
)

// Cache stores vectors by key. Get reports ok=false on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (core.Vector, bool, error)
	Set(ctx context.Context, key string, v core.Vector) error
}

// MemoryCache is an unbounded in-process Cache.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]core.Vector
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: map[string]core.Vector{}}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (core.Vector, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	return v.Clone(), true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, v core.Vector) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = v.Clone()
	return nil
}

// Len returns the number of cached vectors.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// CachedEmbedder memoizes an EmbeddingBackend. Cache failures are logged and
// fall through to the backend.
type CachedEmbedder struct {
	next   core.EmbeddingBackend
	cache  Cache
	logger logging.Logger
}

// NewCachedEmbedder wraps next with cache.
func NewCachedEmbedder(next core.EmbeddingBackend, cache Cache, logger logging.Logger) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache, logger: logging.OrNoOp(logger)}
}

// Dimensions implements core.EmbeddingBackend.
func (c *CachedEmbedder) Dimensions() int { return c.next.Dimensions() }

// Embed implements core.EmbeddingBackend.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (core.Vector, error) {
	key := CacheKey(text)

	v, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Embedding cache read failed", "error", err)
	} else if ok && len(v) == c.next.Dimensions() {
		return v, nil
	}

	v, err = c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, v); err != nil {
		c.logger.Warn("Embedding cache write failed", "error", err)
	}
	return v, nil
}

// CacheKey derives a stable cache key from text.
func CacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
