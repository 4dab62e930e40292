package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"

	"github.com/hupe1980/rsamesh/core"
)

// DefaultDimensions is the vector size of the local embedders.
const DefaultDimensions = 384

// HashEmbedder derives a deterministic vector from the SHA-256 digest of the
// text: the digest bytes are tiled to the target dimension, scaled to [0,1],
// perturbed with Gaussian noise seeded from the digest and normalized.
// Equal texts always map to equal vectors.
type HashEmbedder struct {
	dims  int
	noise float64
}

// HashOptions configures a HashEmbedder.
type HashOptions struct {
	Dimensions int
	Noise      float64 // standard deviation of the seeded perturbation
}

// NewHashEmbedder creates a HashEmbedder.
func NewHashEmbedder(optFns ...func(o *HashOptions)) *HashEmbedder {
	opts := HashOptions{Dimensions: DefaultDimensions, Noise: 0.1}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = DefaultDimensions
	}
	return &HashEmbedder{dims: opts.Dimensions, noise: opts.Noise}
}

// Dimensions implements core.EmbeddingBackend.
func (e *HashEmbedder) Dimensions() int { return e.dims }

// Embed implements core.EmbeddingBackend.
func (e *HashEmbedder) Embed(ctx context.Context, text string) (core.Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digest := sha256.Sum256([]byte(text))
	v := make(core.Vector, e.dims)
	for i := range v {
		v[i] = float64(digest[i%len(digest)]) / 255.0
	}

	seed := uint64(binary.BigEndian.Uint32(digest[:4]))
	rng := rand.New(rand.NewPCG(seed, seed))
	for i := range v {
		v[i] += rng.NormFloat64() * e.noise
	}

	return Normalize(v), nil
}

// CharEmbedder maps the first Dimensions characters of the text to their code
// point divided by 255 and normalizes the result. It is the fallback for
// providers without an embeddings endpoint.
type CharEmbedder struct {
	dims int
}

// NewCharEmbedder creates a CharEmbedder. dims <= 0 selects DefaultDimensions.
func NewCharEmbedder(dims int) *CharEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &CharEmbedder{dims: dims}
}

// Dimensions implements core.EmbeddingBackend.
func (e *CharEmbedder) Dimensions() int { return e.dims }

// Embed implements core.EmbeddingBackend.
func (e *CharEmbedder) Embed(ctx context.Context, text string) (core.Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := make(core.Vector, e.dims)
	i := 0
	for _, r := range text {
		if i >= e.dims {
			break
		}
		v[i] = float64(r) / 255.0
		i++
	}

	return Normalize(v), nil
}
