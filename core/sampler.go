package core

import (
	"math/rand/v2"
	"sync"
)

// Sampler is the randomness seam of the engine. Sample returns k distinct
// indices drawn uniformly from [0, n); Intn returns one uniform index.
type Sampler interface {
	Sample(n, k int) []int
	Intn(n int) int
}

// RandSampler implements Sampler over math/rand/v2. It is safe for concurrent use.
type RandSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler returns a deterministic sampler for the given seed.
func NewSampler(seed uint64) *RandSampler {
	return &RandSampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomSampler returns a sampler seeded from the runtime's random source.
func NewRandomSampler() *RandSampler {
	return &RandSampler{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// Sample draws k of n indices without replacement (partial Fisher-Yates).
// k is clamped to [0, n].
func (s *RandSampler) Sample(n, k int) []int {
	if n <= 0 || k <= 0 {
		return []int{}
	}
	if k > n {
		k = n
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	s.mu.Lock()
	for i := 0; i < k; i++ {
		j := i + s.rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	s.mu.Unlock()

	return idx[:k:k]
}

// Intn returns a uniform index in [0, n). It panics if n <= 0.
func (s *RandSampler) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rng.IntN(n)
}
