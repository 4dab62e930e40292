package adaptive

import (
	"fmt"
	"sync"

	"github.com/hupe1980/rsamesh/core"
)

// Tier names a complexity bucket.
type Tier string

const (
	// TierSimple covers scores below the simple threshold.
	TierSimple Tier = "simple"
	// TierMedium covers scores below the medium threshold.
	TierMedium Tier = "medium"
	// TierComplex covers everything else.
	TierComplex Tier = "complex"
)

// Tiers lists the tiers in ascending complexity.
var Tiers = []Tier{TierSimple, TierMedium, TierComplex}

// Thresholds are the exclusive upper bounds of the simple and medium tiers.
type Thresholds struct {
	Simple float64 `json:"simple" yaml:"simple"`
	Medium float64 `json:"medium" yaml:"medium"`
}

// Validate checks 0 <= Simple < Medium <= 100.
func (t Thresholds) Validate() error {
	if t.Simple < 0 || t.Medium > 100 || t.Simple >= t.Medium {
		return core.NewConfigurationError("thresholds", "need 0 <= simple < medium <= 100, got %v/%v", t.Simple, t.Medium)
	}
	return nil
}

// DefaultThresholds returns simple < 20, medium < 60.
func DefaultThresholds() Thresholds {
	return Thresholds{Simple: 20, Medium: 60}
}

// DefaultConfigs returns the built-in tier parameters.
func DefaultConfigs() map[Tier]core.Params {
	return map[Tier]core.Params{
		TierSimple:  {N: 2, K: 1, T: 2},
		TierMedium:  {N: 4, K: 2, T: 3},
		TierComplex: {N: 6, K: 3, T: 4},
	}
}

// Selection is the outcome of Select.
type Selection struct {
	Tier   Tier        `json:"tier"`
	Score  float64     `json:"score"`
	Params core.Params `json:"params"`
}

// Summary is a snapshot of the selector configuration.
type Summary struct {
	Configs    map[Tier]core.Params `json:"configs"`
	Thresholds Thresholds           `json:"thresholds"`
}

// SelectorOptions configures a Selector.
type SelectorOptions struct {
	Estimator  *Estimator
	Configs    map[Tier]core.Params
	Thresholds Thresholds
}

// Selector maps queries to RSA parameters. It is safe for concurrent use.
type Selector struct {
	estimator *Estimator

	mu         sync.RWMutex
	configs    map[Tier]core.Params
	thresholds Thresholds
}

// NewSelector creates a Selector. Custom configs are merged over the
// defaults and validated.
func NewSelector(optFns ...func(o *SelectorOptions)) (*Selector, error) {
	opts := SelectorOptions{
		Estimator:  NewEstimator(),
		Configs:    DefaultConfigs(),
		Thresholds: DefaultThresholds(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	configs := DefaultConfigs()
	for tier, p := range opts.Configs {
		if err := validateTier(tier, p); err != nil {
			return nil, err
		}
		configs[tier] = p
	}
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if opts.Estimator == nil {
		opts.Estimator = NewEstimator()
	}

	return &Selector{estimator: opts.Estimator, configs: configs, thresholds: opts.Thresholds}, nil
}

func validateTier(tier Tier, p core.Params) error {
	switch tier {
	case TierSimple, TierMedium, TierComplex:
	default:
		return fmt.Errorf("%w: %q", core.ErrUnknownTier, tier)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("tier %s: %w", tier, err)
	}
	return nil
}

// TierForScore buckets a complexity score.
func (s *Selector) TierForScore(score float64) Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tierFor(score)
}

func (s *Selector) tierFor(score float64) Tier {
	switch {
	case score < s.thresholds.Simple:
		return TierSimple
	case score < s.thresholds.Medium:
		return TierMedium
	default:
		return TierComplex
	}
}

// SelectScore returns the selection for a precomputed score.
func (s *Selector) SelectScore(score float64) Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tier := s.tierFor(score)
	return Selection{Tier: tier, Score: score, Params: s.configs[tier]}
}

// Select estimates the complexity of query and returns the tier parameters.
func (s *Selector) Select(query string) Selection {
	return s.SelectScore(s.estimator.Estimate(query))
}

// Config returns the parameters of tier.
func (s *Selector) Config(tier Tier) (core.Params, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.configs[tier]
	if !ok {
		return core.Params{}, fmt.Errorf("%w: %q", core.ErrUnknownTier, tier)
	}
	return p, nil
}

// UpdateConfig replaces the parameters of tier. Invalid combinations are
// rejected and leave the selector unchanged.
func (s *Selector) UpdateConfig(tier Tier, p core.Params) error {
	if err := validateTier(tier, p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.configs[tier] = p
	return nil
}

// UpdateThresholds replaces the tier thresholds.
func (s *Selector) UpdateThresholds(t Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.thresholds = t
	return nil
}

// Summary returns a copy of the current configuration.
func (s *Selector) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := make(map[Tier]core.Params, len(s.configs))
	for k, v := range s.configs {
		configs[k] = v
	}
	return Summary{Configs: configs, Thresholds: s.thresholds}
}
