// Package rediscache implements embedding.Cache on top of Redis so embeddings
// can be shared between processes. Keys are namespaced as
// rsamesh:{namespace}:embedding:{key}.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/rsamesh/core"
)

// Options configures a Cache.
type Options struct {
	Namespace string
	TTL       time.Duration // 0 keeps entries forever
}

// Cache is a Redis backed embedding cache. It is safe for concurrent use.
type Cache struct {
	rdb  *redis.Client
	opts Options
}

// New creates a Cache connected with redisOpts.
func New(redisOpts *redis.Options, optFns ...func(o *Options)) (*Cache, error) {
	if redisOpts == nil {
		return nil, fmt.Errorf("redis options cannot be nil")
	}
	return NewFromClient(redis.NewClient(redisOpts), optFns...)
}

// NewFromClient wraps an existing client.
func NewFromClient(rdb *redis.Client, optFns ...func(o *Options)) (*Cache, error) {
	opts := Options{Namespace: "default"}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	return &Cache{rdb: rdb, opts: opts}, nil
}

// Key returns the namespaced Redis key for an embedding cache key.
func (c *Cache) Key(key string) string {
	return fmt.Sprintf("rsamesh:%s:embedding:%s", c.opts.Namespace, key)
}

// Get implements embedding.Cache.
func (c *Cache) Get(ctx context.Context, key string) (core.Vector, bool, error) {
	raw, err := c.rdb.Get(ctx, c.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read embedding from Redis: %w", err)
	}

	var v core.Vector
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached embedding: %w", err)
	}
	return v, true, nil
}

// Set implements embedding.Cache.
func (c *Cache) Set(ctx context.Context, key string, v core.Vector) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}
	if err := c.rdb.Set(ctx, c.Key(key), raw, c.opts.TTL).Err(); err != nil {
		return fmt.Errorf("failed to write embedding to Redis: %w", err)
	}
	return nil
}

// Ping verifies Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
