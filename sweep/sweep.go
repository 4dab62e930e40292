// Package sweep grid-searches RSA parameters against benchmark queries and
// feeds the winners back into the adaptive selector.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/rsamesh/adaptive"
	"github.com/hupe1980/rsamesh/core"
	"github.com/hupe1980/rsamesh/engine"
	"github.com/hupe1980/rsamesh/logging"
)

// Metric names a ranking criterion for Best.
type Metric string

const (
	// MetricLatency prefers the lowest average latency.
	MetricLatency Metric = "latency"
	// MetricDiversity prefers the highest average diversity.
	MetricDiversity Metric = "diversity"
	// MetricQuality prefers the highest average quality score.
	MetricQuality Metric = "quality"
)

// ErrNoResults is returned when there is nothing to rank.
var ErrNoResults = errors.New("no sweep results")

// Grid lists the values tried per parameter.
type Grid struct {
	N []int `json:"n" yaml:"n"`
	K []int `json:"k" yaml:"k"`
	T []int `json:"t" yaml:"t"`
}

// DefaultGrid is N in {2,4,6,8}, K in {1,2,3}, T in {1,2,3,4}.
func DefaultGrid() Grid {
	return Grid{N: []int{2, 4, 6, 8}, K: []int{1, 2, 3}, T: []int{1, 2, 3, 4}}
}

// GenerateConfigs returns every valid combination of the grid in N, K, T
// order.
func GenerateConfigs(g Grid) []core.Params {
	var out []core.Params
	for _, n := range g.N {
		for _, k := range g.K {
			for _, t := range g.T {
				p := core.Params{N: n, K: k, T: t}
				if p.Validate() == nil {
					out = append(out, p)
				}
			}
		}
	}
	return out
}

// Result aggregates the runs of one configuration over a query group.
type Result struct {
	Params       core.Params   `json:"params"`
	Complexity   Complexity    `json:"complexity"`
	AvgLatency   time.Duration `json:"avg_latency"`
	AvgDiversity float64       `json:"avg_diversity"`
	AvgQuality   float64       `json:"avg_quality"`
	TotalTime    time.Duration `json:"total_time"`
	NumQueries   int           `json:"num_queries"`
}

func (r Result) String() string {
	return fmt.Sprintf("N=%d,K=%d,T=%d", r.Params.N, r.Params.K, r.Params.T)
}

// Factory builds a fresh engine with n agents.
type Factory func(n int) (*engine.Engine, error)

// Options configures a Sweeper.
type Options struct {
	// MaxConfigs truncates the generated grid; 0 tests everything.
	MaxConfigs int

	// Concurrency is the number of configurations tested in parallel
	// (default 1).
	Concurrency int

	Logger logging.Logger
}

// Sweeper runs benchmark queries over a parameter grid.
type Sweeper struct {
	factory Factory
	opts    Options
}

// New creates a Sweeper.
func New(factory Factory, optFns ...func(o *Options)) *Sweeper {
	opts := Options{Concurrency: 1, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	return &Sweeper{factory: factory, opts: opts}
}

// TestConfig runs every query with p on a fresh engine and averages the
// outcome. The store is reset between queries so rounds can be recorded
// again.
func (s *Sweeper) TestConfig(ctx context.Context, p core.Params, queries []Query) (Result, error) {
	if len(queries) == 0 {
		return Result{}, ErrNoResults
	}

	eng, err := s.factory(p.N)
	if err != nil {
		return Result{}, fmt.Errorf("config %d/%d/%d: %w", p.N, p.K, p.T, err)
	}

	res := Result{Params: p, Complexity: queries[0].Complexity, NumQueries: len(queries)}
	start := time.Now()

	var latency time.Duration
	for _, q := range queries {
		eng.ResetStore()

		began := time.Now()
		out, err := eng.Run(ctx, q.Text, func(o *engine.RunOptions) { o.K, o.T = p.K, p.T })
		if err != nil {
			return Result{}, fmt.Errorf("config %d/%d/%d: %w", p.N, p.K, p.T, err)
		}
		latency += time.Since(began)
		res.AvgDiversity += out.Metrics.AvgDiversity
		res.AvgQuality += QualityScore(out.Response, q.ExpectedKeywords)
	}

	n := float64(len(queries))
	res.TotalTime = time.Since(start)
	res.AvgLatency = latency / time.Duration(len(queries))
	res.AvgDiversity /= n
	res.AvgQuality /= n

	s.opts.Logger.Info("Config tested", "config", res.String(), "avg_latency", res.AvgLatency,
		"avg_diversity", res.AvgDiversity, "avg_quality", res.AvgQuality)

	return res, nil
}

// Run tests every configuration of grid against the queries of complexity.
// Results keep grid order.
func (s *Sweeper) Run(ctx context.Context, c Complexity, grid Grid) ([]Result, error) {
	queries := QueriesFor(c)
	configs := GenerateConfigs(grid)
	if s.opts.MaxConfigs > 0 && len(configs) > s.opts.MaxConfigs {
		configs = configs[:s.opts.MaxConfigs]
	}

	s.opts.Logger.Info("Sweep started", "complexity", c, "configs", len(configs), "queries", len(queries))

	results := make([]Result, len(configs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, p := range configs {
		g.Go(func() error {
			r, err := s.TestConfig(ctx, p, queries)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// ParetoFrontier returns the results not dominated on latency (lower is
// better) and quality (higher is better).
func ParetoFrontier(results []Result) []Result {
	var out []Result
	for i, cand := range results {
		dominated := false
		for j, other := range results {
			if i == j {
				continue
			}
			if other.AvgLatency <= cand.AvgLatency && other.AvgQuality >= cand.AvgQuality &&
				(other.AvgLatency < cand.AvgLatency || other.AvgQuality > cand.AvgQuality) {
				dominated = true
				break
			}
		}
		if !dominated {
			out = append(out, cand)
		}
	}
	return out
}

// Best returns the result with the lowest latency or the highest diversity
// or quality. Ties keep the earliest result.
func Best(m Metric, results []Result) (Result, error) {
	if len(results) == 0 {
		return Result{}, ErrNoResults
	}

	var better func(a, b Result) bool
	switch m {
	case MetricLatency:
		better = func(a, b Result) bool { return a.AvgLatency < b.AvgLatency }
	case MetricDiversity:
		better = func(a, b Result) bool { return a.AvgDiversity > b.AvgDiversity }
	case MetricQuality:
		better = func(a, b Result) bool { return a.AvgQuality > b.AvgQuality }
	default:
		return Result{}, fmt.Errorf("unknown metric %q", m)
	}

	best := results[0]
	for _, r := range results[1:] {
		if better(r, best) {
			best = r
		}
	}
	return best, nil
}

// Apply installs the parameters of r as the selector config for the tier
// its complexity maps to.
func Apply(sel *adaptive.Selector, r Result) error {
	return sel.UpdateConfig(r.Complexity.Tier(), r.Params)
}

// Report renders a plain text summary of results.
func Report(results []Result) string {
	if len(results) == 0 {
		return "No results to report"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total configurations: %d\n", len(results))

	latency, _ := Best(MetricLatency, results)
	fmt.Fprintf(&b, "\nBest latency: %s\n  latency=%s quality=%.0f%% diversity=%.4f\n",
		latency, latency.AvgLatency.Round(time.Millisecond), latency.AvgQuality*100, latency.AvgDiversity)

	quality, _ := Best(MetricQuality, results)
	fmt.Fprintf(&b, "\nBest quality: %s\n  quality=%.0f%% latency=%s diversity=%.4f\n",
		quality, quality.AvgQuality*100, quality.AvgLatency.Round(time.Millisecond), quality.AvgDiversity)

	frontier := ParetoFrontier(results)
	sort.SliceStable(frontier, func(i, j int) bool { return frontier[i].AvgLatency < frontier[j].AvgLatency })
	fmt.Fprintf(&b, "\nPareto frontier (%d configurations):\n", len(frontier))
	for _, r := range frontier {
		fmt.Fprintf(&b, "  %s: latency=%s quality=%.0f%%\n", r, r.AvgLatency.Round(time.Millisecond), r.AvgQuality*100)
	}

	return b.String()
}
