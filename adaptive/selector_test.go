package adaptive

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rsamesh/core"
)

func newSelector(t *testing.T, optFns ...func(o *SelectorOptions)) *Selector {
	t.Helper()
	s, err := NewSelector(optFns...)
	require.NoError(t, err)
	return s
}

func TestSelector_TierForScore(t *testing.T) {
	s := newSelector(t)

	assert.Equal(t, TierSimple, s.TierForScore(10))
	assert.Equal(t, TierMedium, s.TierForScore(45))
	assert.Equal(t, TierComplex, s.TierForScore(80))

	assert.Equal(t, TierSimple, s.TierForScore(19.99))
	assert.Equal(t, TierMedium, s.TierForScore(20))
	assert.Equal(t, TierComplex, s.TierForScore(60))
}

func TestSelector_DefaultParams(t *testing.T) {
	s := newSelector(t)

	assert.Equal(t, core.Params{N: 2, K: 1, T: 2}, s.SelectScore(10).Params)
	assert.Equal(t, core.Params{N: 4, K: 2, T: 3}, s.SelectScore(45).Params)
	assert.Equal(t, core.Params{N: 6, K: 3, T: 4}, s.SelectScore(80).Params)
}

func TestSelector_Select(t *testing.T) {
	s := newSelector(t)

	sel := s.Select("Calculate 5 + 3")
	assert.Equal(t, TierSimple, sel.Tier)
	assert.Zero(t, sel.Score)

	sel = s.Select("Explain how binary search works and why it's efficient")
	assert.Equal(t, TierMedium, sel.Tier)

	sel = s.Select("Write a creative story about AI consciousness. Consider multiple perspectives and philosophical implications. Explore themes of identity, free will, and emergence.")
	assert.Equal(t, TierComplex, sel.Tier)
	assert.GreaterOrEqual(t, sel.Score, 60.0)
}

func TestSelector_UpdateConfig(t *testing.T) {
	s := newSelector(t)

	require.NoError(t, s.UpdateConfig(TierMedium, core.Params{N: 8, K: 3, T: 2}))
	p, err := s.Config(TierMedium)
	require.NoError(t, err)
	assert.Equal(t, core.Params{N: 8, K: 3, T: 2}, p)

	err = s.UpdateConfig(TierMedium, core.Params{N: 2, K: 3, T: 1})
	assert.ErrorIs(t, err, core.ErrConfiguration)

	err = s.UpdateConfig(Tier("epic"), core.Params{N: 2, K: 1, T: 1})
	assert.ErrorIs(t, err, core.ErrUnknownTier)

	// rejected updates leave the previous config in place
	p, _ = s.Config(TierMedium)
	assert.Equal(t, core.Params{N: 8, K: 3, T: 2}, p)
}

func TestSelector_NewSelectorValidates(t *testing.T) {
	_, err := NewSelector(func(o *SelectorOptions) {
		o.Configs = map[Tier]core.Params{TierSimple: {N: 1, K: 2, T: 1}}
	})
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = NewSelector(func(o *SelectorOptions) {
		o.Thresholds = Thresholds{Simple: 50, Medium: 40}
	})
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestSelector_UpdateThresholds(t *testing.T) {
	s := newSelector(t)

	require.NoError(t, s.UpdateThresholds(Thresholds{Simple: 10, Medium: 30}))
	assert.Equal(t, TierMedium, s.TierForScore(10))
	assert.Equal(t, TierComplex, s.TierForScore(45))

	assert.Error(t, s.UpdateThresholds(Thresholds{Simple: 30, Medium: 30}))
}

func TestSelector_Summary(t *testing.T) {
	s := newSelector(t)
	sum := s.Summary()

	assert.Equal(t, DefaultThresholds(), sum.Thresholds)
	assert.Len(t, sum.Configs, 3)

	// mutating the snapshot does not leak into the selector
	sum.Configs[TierSimple] = core.Params{N: 9, K: 9, T: 9}
	p, _ := s.Config(TierSimple)
	assert.Equal(t, core.Params{N: 2, K: 1, T: 2}, p)
}

func TestSelector_ConcurrentUpdateAndSelect(t *testing.T) {
	s := newSelector(t)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.UpdateConfig(TierMedium, core.Params{N: 4 + i%3, K: 2, T: 3})
		}()
		go func() {
			defer wg.Done()
			sel := s.SelectScore(45)
			assert.NoError(t, sel.Params.Validate())
		}()
	}
	wg.Wait()
}
