package adaptive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestEstimator_KnownQueries(t *testing.T) {
	e := NewEstimator()

	tests := []struct {
		query string
		score float64
	}{
		{"Calculate 5 + 3", 0},
		{"What is 15*23?", 0},
		{"Hello", 5},
		{"If 17 sheep and all but 9 die, how many are left?", 10},
		{"Explain how binary search works and why it's efficient", 35},
		{"Write a creative story exploring multiple philosophical themes", 35},
		{"Design a distributed caching system. Compare multiple approaches, explain the trade-offs, and justify your choice.", 60},
		{"Write a creative story about AI consciousness. Consider multiple perspectives and philosophical implications. Explore themes of identity, free will, and emergence.", 95},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.score, e.Estimate(tt.query))
		})
	}
}

func TestEstimator_Analyze(t *testing.T) {
	a := NewEstimator().Analyze("Calculate 5 + 3")

	assert.Equal(t, 15, a.Chars)
	assert.Equal(t, 4, a.Words)
	assert.Equal(t, 1, a.Sentences)
	assert.Equal(t, 3, a.MathMatches) // calculate, "5 + 3", bare numbers
	assert.Zero(t, a.ReasonMatches)
	assert.Zero(t, a.CreativeHits)
}

func TestEstimator_SubstringMatches(t *testing.T) {
	// "if" inside "different" and "how" inside "show" count as reasoning hits.
	a := NewEstimator().Analyze("show different")
	assert.Equal(t, 2, a.ReasonMatches)
}

func TestEstimator_CountsRunes(t *testing.T) {
	// 49 multi-byte runes stay in the shortest length bucket.
	q := ""
	for i := 0; i < 49; i++ {
		q += "é"
	}
	a := NewEstimator().Analyze(q)
	assert.Equal(t, 49, a.Chars)
	assert.Equal(t, 5.0, a.Score)
}

func TestEstimator_TrailingPunctuationCountsAsSentence(t *testing.T) {
	a := NewEstimator().Analyze("One. Two. Three.")
	assert.Equal(t, 4, a.Sentences)
}

func TestEstimator_PureAndBounded(t *testing.T) {
	e := NewEstimator()

	rapid.Check(t, func(t *rapid.T) {
		q := rapid.String().Draw(t, "query")

		first := e.Estimate(q)
		if first < 0 || first > 100 {
			t.Fatalf("score %f out of range", first)
		}
		if second := e.Estimate(q); second != first {
			t.Fatalf("non-deterministic score: %f != %f", first, second)
		}
	})
}
