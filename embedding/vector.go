package embedding

import (
	"fmt"
	"math"

	"github.com/hupe1980/rsamesh/core"
)

// Epsilon guards divisions by a vector norm.
const Epsilon = 1e-10

// Norm returns the Euclidean length of v.
func Norm(v core.Vector) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

// Normalize returns v scaled to unit length. The zero vector stays zero.
func Normalize(v core.Vector) core.Vector {
	n := Norm(v) + Epsilon
	out := make(core.Vector, len(v))
	for i, x := range v {
		out[i] = x / n
	}
	return out
}

// Dot returns the inner product of a and b. Extra components of the longer
// vector are ignored.
func Dot(a, b core.Vector) float64 {
	n := min(len(a), len(b))
	var s float64
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero.
func Cosine(a, b core.Vector) float64 {
	return Dot(a, b) / ((Norm(a) + Epsilon) * (Norm(b) + Epsilon))
}

// Sum adds vectors elementwise in the given order.
func Sum(vs ...core.Vector) (core.Vector, error) {
	if len(vs) == 0 {
		return core.Vector{}, nil
	}

	out := make(core.Vector, len(vs[0]))
	for _, v := range vs {
		if len(v) != len(out) {
			return nil, fmt.Errorf("%w: %d != %d", core.ErrDimensionMismatch, len(v), len(out))
		}
		for i, x := range v {
			out[i] += x
		}
	}
	return out, nil
}

// MeanPairwiseDistance returns the mean of (1 - cosine) over all unordered
// pairs of vs after normalizing each vector. It is 0 for fewer than two vectors.
func MeanPairwiseDistance(vs []core.Vector) float64 {
	if len(vs) < 2 {
		return 0
	}

	unit := make([]core.Vector, len(vs))
	for i, v := range vs {
		unit[i] = Normalize(v)
	}

	var total float64
	var pairs int
	for i := 0; i < len(unit); i++ {
		for j := i + 1; j < len(unit); j++ {
			total += 1 - Dot(unit[i], unit[j])
			pairs++
		}
	}

	return total / float64(pairs)
}
