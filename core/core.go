package core

import (
	"time"
)

// Vector is a dense embedding. Vectors stored by rsamesh are unit length.
type Vector []float64

// Clone returns an independent copy of v.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Params controls one RSA run: N agents, subsets of size K, T rounds.
type Params struct {
	N int `json:"n" yaml:"n"`
	K int `json:"k" yaml:"k"`
	T int `json:"t" yaml:"t"`
}

// Validate reports a ConfigurationError when the combination cannot be run.
func (p Params) Validate() error {
	switch {
	case p.N < 1:
		return NewConfigurationError("n", "must be >= 1, got %d", p.N)
	case p.K < 1:
		return NewConfigurationError("k", "must be >= 1, got %d", p.K)
	case p.T < 1:
		return NewConfigurationError("t", "must be >= 1, got %d", p.T)
	case p.K > p.N:
		return NewConfigurationError("k", "must be <= n (%d), got %d", p.N, p.K)
	}

	return nil
}

// IterationRecord is the population snapshot taken at the end of a round.
type IterationRecord struct {
	Round      int      `json:"round"`
	Population []string `json:"population"`
	Diversity  float64  `json:"diversity"`
}

// Metrics summarizes one orchestration call.
type Metrics struct {
	TotalTime        time.Duration `json:"total_time"`
	AvgDiversity     float64       `json:"avg_diversity"`
	TotalGenerations int           `json:"total_generations"`
}

// Result is returned by a full RSA run.
type Result struct {
	RunID           string            `json:"run_id"`
	Response        string            `json:"response"`
	IsCrisis        bool              `json:"is_crisis"`
	Iterations      []IterationRecord `json:"iterations"`
	FinalPopulation []string          `json:"final_population,omitempty"`
	Params          Params            `json:"params"`
	Tier            string            `json:"tier,omitempty"`
	Complexity      float64           `json:"complexity,omitempty"`
	Metrics         Metrics           `json:"metrics"`
}

// SingleStepResult is returned by the single aggregation step mode.
type SingleStepResult struct {
	RunID      string   `json:"run_id"`
	Response   string   `json:"response"`
	IsCrisis   bool     `json:"is_crisis"`
	Candidates []string `json:"candidates"`
	Method     string   `json:"method"`
}

// MethodSingleStep identifies results produced by the single-step mode.
const MethodSingleStep = "single_step_aggregation"

// ErrorMarker prefixes responses produced by an agent whose generation call
// failed or timed out. Such responses stay in the population as ordinary text.
const ErrorMarker = "[error]"
