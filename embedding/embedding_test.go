package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/hupe1980/rsamesh/core"
)

var (
	_ core.EmbeddingBackend = (*HashEmbedder)(nil)
	_ core.EmbeddingBackend = (*CharEmbedder)(nil)
	_ core.EmbeddingBackend = (*CachedEmbedder)(nil)
	_ Cache                 = (*MemoryCache)(nil)
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "What is 15*23?")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "What is 15*23?")
	require.NoError(t, err)
	c, err := e.Embed(ctx, "What is 17*23?")
	require.NoError(t, err)

	assert.Len(t, a, DefaultDimensions)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.InDelta(t, 1.0, Norm(a), 1e-9)
}

func TestHashEmbedderCustomDimensions(t *testing.T) {
	e := NewHashEmbedder(func(o *HashOptions) { o.Dimensions = 16 })
	v, err := e.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, v, 16)
	assert.Equal(t, 16, e.Dimensions())
}

func TestCharEmbedder(t *testing.T) {
	e := NewCharEmbedder(4)
	v, err := e.Embed(context.Background(), "ab")
	require.NoError(t, err)
	require.Len(t, v, 4)

	n := math.Sqrt(97*97 + 98*98)
	assert.InDelta(t, 97/n, v[0], 1e-9)
	assert.InDelta(t, 98/n, v[1], 1e-9)
	assert.Zero(t, v[2])

	empty, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, core.Vector{0, 0, 0, 0}, empty)
}

func TestSum(t *testing.T) {
	s, err := Sum(core.Vector{1, 2}, core.Vector{3, 4}, core.Vector{0.5, 0})
	require.NoError(t, err)
	assert.Equal(t, core.Vector{4.5, 6}, s)

	_, err = Sum(core.Vector{1}, core.Vector{1, 2})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestMeanPairwiseDistance(t *testing.T) {
	assert.Zero(t, MeanPairwiseDistance(nil))
	assert.Zero(t, MeanPairwiseDistance([]core.Vector{{1, 0}}))
	assert.InDelta(t, 0, MeanPairwiseDistance([]core.Vector{{1, 0}, {2, 0}}), 1e-9)
	assert.InDelta(t, 1, MeanPairwiseDistance([]core.Vector{{1, 0}, {0, 1}}), 1e-9)
}

func TestMeanPairwiseDistanceNonNegativeInputsBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 6).Draw(t, "n")
		vs := make([]core.Vector, n)
		for i := range vs {
			vs[i] = core.Vector(rapid.SliceOfN(rapid.Float64Range(0, 10), 3, 3).Draw(t, "v"))
		}

		d := MeanPairwiseDistance(vs)
		if d < -1e-9 || d > 1+1e-9 {
			t.Fatalf("distance %f out of [0,1]", d)
		}
	})
}

type countingEmbedder struct {
	*HashEmbedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) (core.Vector, error) {
	c.calls++
	return c.HashEmbedder.Embed(ctx, text)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (core.Vector, bool, error) {
	return nil, false, errors.New("down")
}
func (brokenCache) Set(context.Context, string, core.Vector) error { return errors.New("down") }

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder()}
	cache := NewMemoryCache()
	e := NewCachedEmbedder(inner, cache, nil)
	ctx := context.Background()

	a, err := e.Embed(ctx, "hello")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cache.Len())
}

func TestCachedEmbedderCacheFailureFallsThrough(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder()}
	e := NewCachedEmbedder(inner, brokenCache{}, nil)

	v, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, v, DefaultDimensions)
	assert.Equal(t, 1, inner.calls)
}
