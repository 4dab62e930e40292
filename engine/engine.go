package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/rsamesh/adaptive"
	"github.com/hupe1980/rsamesh/agent"
	"github.com/hupe1980/rsamesh/core"
	"github.com/hupe1980/rsamesh/internal/util"
	"github.com/hupe1980/rsamesh/logging"
	"github.com/hupe1980/rsamesh/memory"
)

const (
	tracerName = "github.com/hupe1980/rsamesh/engine"

	// ModeRSA labels callback contexts of full RSA runs.
	ModeRSA = "rsa"

	maxSelectionHistory = 100
	previewLength       = 200
)

// Options configures an Engine using the functional options pattern.
//
// Example:
//
//	eng, err := engine.New(agents, func(o *engine.Options) {
//	    o.Sampler = core.NewSampler(42)
//	    o.Logger = logger
//	})
type Options struct {
	// Selector maps queries to (K, T) when a run does not set them.
	// A default selector is created when nil.
	Selector *adaptive.Selector

	// Adaptive enables the selector. When false, DefaultK and DefaultT fill
	// missing run parameters. Defaults to true.
	Adaptive bool

	// DefaultK and DefaultT are used when Adaptive is false (2 and 3).
	DefaultK int
	DefaultT int

	// Sampler is the source of randomness for subset sampling and the final
	// answer pick. Defaults to a randomly seeded sampler.
	Sampler core.Sampler

	// Store records fine and community vectors. It persists across runs on
	// the same engine until ResetStore. Defaults to an in-memory store.
	Store *memory.Store

	// MaxConcurrency bounds in-flight capability calls per phase; 0 means
	// one goroutine per slot.
	MaxConcurrency int

	// MaxGenerations caps generation calls per run; 0 is unlimited. A run
	// whose N×T exceeds it is rejected before any work starts.
	MaxGenerations int

	// Callbacks are registered on construction.
	Callbacks []Callback

	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger

	// Tracer defaults to the global OpenTelemetry tracer provider.
	Tracer trace.Tracer
}

// RunOptions tunes a single call.
type RunOptions struct {
	// K and T override the resolved parameters when non-zero.
	K int
	T int

	// UserState feeds the wellbeing check of the safety gate.
	UserState agent.UserState
}

// Stats aggregates engine level counters across runs.
type Stats struct {
	TotalQueries int                  `json:"total_queries"`
	Selections   []adaptive.Selection `json:"param_selections"`
}

// Engine runs Recursive Self-Aggregation over a fixed agent population.
//
// Run lifecycle:
//  1. Resolve (N, K, T); N is the population size, K and T come from the run
//     options, the adaptive selector or the defaults.
//  2. Safety gate: every agent checks the query. The first alert ends the run
//     as a crisis without any generation.
//  3. Round 1: every agent answers the raw query. Once all answers are in,
//     every answer is embedded and recorded in the store.
//  4. Rounds 2..T: every slot samples K distinct indices of the previous
//     population, builds an aggregation prompt from them and produces the
//     slot's next answer. The population is replaced as a whole.
//  5. The final answer is a uniformly random member of the last population.
//
// Capability failures never abort a run: they surface as "[error] ..."
// responses and zero vectors. Rounds are strictly sequential; the slots of a
// round run concurrently.
type Engine struct {
	agents    []*agent.Agent
	opts      Options
	callbacks *CallbackManager

	mu    sync.Mutex
	stats Stats
}

// New creates an Engine. It fails fast with a ConfigurationError when there
// are no agents, agent IDs repeat or agents disagree on embedding dimensions.
func New(agents []*agent.Agent, optFns ...func(o *Options)) (*Engine, error) {
	opts := Options{
		Adaptive: true,
		DefaultK: 2,
		DefaultT: 3,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if len(agents) == 0 {
		return nil, core.NewConfigurationError("agents", "at least one agent is required")
	}

	dim := agents[0].Dimensions()
	seen := make(map[string]bool, len(agents))
	for _, a := range agents {
		if seen[a.ID()] {
			return nil, core.NewConfigurationError("agents", "duplicate agent id %q", a.ID())
		}
		seen[a.ID()] = true
		if a.Dimensions() != dim {
			return nil, core.NewConfigurationError("embedding", "agent %s embeds into %d dimensions, want %d", a.ID(), a.Dimensions(), dim)
		}
	}
	if dim < 1 {
		return nil, core.NewConfigurationError("embedding", "dimension must be >= 1, got %d", dim)
	}

	if opts.Store == nil {
		opts.Store = memory.NewStore(dim)
	} else if opts.Store.Dimensions() != dim {
		return nil, core.NewConfigurationError("store", "dimension %d does not match agents (%d)", opts.Store.Dimensions(), dim)
	}
	if opts.Adaptive && opts.Selector == nil {
		sel, err := adaptive.NewSelector()
		if err != nil {
			return nil, err
		}
		opts.Selector = sel
	}
	if opts.Sampler == nil {
		opts.Sampler = core.NewRandomSampler()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	e := &Engine{
		agents:    append([]*agent.Agent(nil), agents...),
		opts:      opts,
		callbacks: NewCallbackManager(),
	}
	for _, cb := range opts.Callbacks {
		e.callbacks.RegisterCallback(cb)
	}

	return e, nil
}

// Agents returns the population members in slot order.
func (e *Engine) Agents() []*agent.Agent {
	return append([]*agent.Agent(nil), e.agents...)
}

// N returns the population size.
func (e *Engine) N() int { return len(e.agents) }

// Store returns the engine's store.
func (e *Engine) Store() *memory.Store { return e.opts.Store }

// ResetStore clears the store so the same rounds can be recorded again.
func (e *Engine) ResetStore() { e.opts.Store.Reset() }

// Selector returns the adaptive selector, nil when adaptivity is disabled.
func (e *Engine) Selector() *adaptive.Selector { return e.opts.Selector }

// RegisterCallback adds a lifecycle callback.
func (e *Engine) RegisterCallback(cb Callback) { e.callbacks.RegisterCallback(cb) }

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Stats{
		TotalQueries: e.stats.TotalQueries,
		Selections:   append([]adaptive.Selection(nil), e.stats.Selections...),
	}
}

func (e *Engine) recordQuery(sel *adaptive.Selection) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.TotalQueries++
	if sel == nil {
		return
	}
	e.stats.Selections = append(e.stats.Selections, *sel)
	if over := len(e.stats.Selections) - maxSelectionHistory; over > 0 {
		e.stats.Selections = append([]adaptive.Selection(nil), e.stats.Selections[over:]...)
	}
}

// ResolveParams computes the parameters a run of query would use. Explicit
// values win; missing ones come from the selector (K capped at N) or from
// the defaults. An explicit K above N is a ConfigurationError.
func (e *Engine) ResolveParams(query string, ro RunOptions) (core.Params, *adaptive.Selection, error) {
	n := len(e.agents)
	if ro.K > n {
		return core.Params{}, nil, core.NewConfigurationError("k", "must be <= n (%d), got %d", n, ro.K)
	}

	p := core.Params{N: n, K: ro.K, T: ro.T}

	var sel *adaptive.Selection
	if p.K == 0 || p.T == 0 {
		k, t := e.opts.DefaultK, e.opts.DefaultT
		if e.opts.Adaptive {
			s := e.opts.Selector.Select(query)
			sel = &s
			k, t = s.Params.K, s.Params.T
		}
		if p.K == 0 {
			p.K = min(k, n)
		}
		if p.T == 0 {
			p.T = t
		}
	}

	if err := p.Validate(); err != nil {
		return core.Params{}, nil, err
	}
	return p, sel, nil
}

// checkSafety asks every agent in slot order; the first alert wins. An
// empty result means the query is safe.
func (e *Engine) checkSafety(query string, state agent.UserState) string {
	for _, a := range e.agents {
		if alert, ok := a.CheckSafety(query, state); ok {
			return alert
		}
	}
	return ""
}

// preflight rejects runs whose records would collide with stored ones.
func (e *Engine) preflight(rounds int) error {
	for round := 1; round <= rounds; round++ {
		for _, a := range e.agents {
			if e.opts.Store.Has(a.ID(), round) {
				return &core.DuplicateRecordError{Level: string(memory.LevelFine), Key: memory.FineKey(a.ID(), round)}
			}
		}
	}
	return nil
}

// Run executes RSA for query and returns the final answer with per-round
// snapshots.
//
// Errors are returned only for configuration problems, store key collisions,
// dimension mismatches reported by an embedding backend, callback failures
// and cancellation of ctx between rounds.
func (e *Engine) Run(ctx context.Context, query string, optFns ...func(o *RunOptions)) (*core.Result, error) {
	var ro RunOptions
	for _, fn := range optFns {
		fn(&ro)
	}

	start := time.Now()
	runID := util.NewID()

	params, sel, err := e.ResolveParams(query, ro)
	if err != nil {
		return nil, err
	}

	// A crisis run generates nothing and writes no records, so neither the
	// budget nor the store is consulted for it.
	alert := e.checkSafety(query, ro.UserState)
	limiter := core.NewCallLimiter(e.opts.MaxGenerations)
	if alert == "" {
		if err := limiter.Reserve(params.N * params.T); err != nil {
			return nil, err
		}
		if err := e.preflight(params.T); err != nil {
			return nil, err
		}
	}

	ctx, span := e.opts.Tracer.Start(ctx, "rsa.run", trace.WithAttributes(
		attribute.String("rsa.run_id", runID),
		attribute.Int("rsa.n", params.N),
		attribute.Int("rsa.k", params.K),
		attribute.Int("rsa.t", params.T),
	))
	defer span.End()

	result, err := e.run(ctx, runID, query, alert, params, sel, limiter, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.opts.Logger.Error("Run failed", "run_id", runID, "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("rsa.crisis", result.IsCrisis), attribute.Float64("rsa.avg_diversity", result.Metrics.AvgDiversity))
	return result, nil
}

func (e *Engine) run(ctx context.Context, runID, query, alert string, params core.Params, sel *adaptive.Selection, limiter *core.CallLimiter, start time.Time) (*core.Result, error) {
	cbCtx := &CallbackContext{RunID: runID, Query: query, Mode: ModeRSA, Params: params}
	result := &core.Result{RunID: runID, Params: params, Iterations: []core.IterationRecord{}}
	if sel != nil {
		cbCtx.Tier, cbCtx.Complexity = string(sel.Tier), sel.Score
		result.Tier, result.Complexity = string(sel.Tier), sel.Score
	}

	e.recordQuery(sel)
	e.opts.Logger.Info("Run started", "run_id", runID, "n", params.N, "k", params.K, "t", params.T, "tier", result.Tier)

	if err := e.callbacks.ExecuteCallbacks(ctx, CallbackBeforeRun, cbCtx); err != nil {
		return nil, err
	}

	if alert != "" {
		result.Response = alert
		result.IsCrisis = true
		result.Metrics.TotalTime = time.Since(start)
		e.opts.Logger.Warn("Safety alert raised", "run_id", runID, "alert", alert)
		if err := e.finish(ctx, cbCtx, result, CallbackOnCrisis); err != nil {
			return nil, err
		}
		return result, nil
	}

	var population []string
	var diversitySum float64
	for round := 1; round <= params.T; round++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled before round %d: %w", round, err)
		}

		record, next, err := e.runRound(ctx, runID, query, params, round, population, limiter)
		if err != nil {
			return nil, err
		}
		population = next
		diversitySum += record.Diversity
		result.Iterations = append(result.Iterations, record)

		cbCtx.Round = round
		for slot, resp := range population {
			if !strings.HasPrefix(resp, core.ErrorMarker) {
				continue
			}
			cbCtx.Slot, cbCtx.AgentID = slot, e.agents[slot].ID()
			if err := e.callbacks.ExecuteCallbacks(ctx, CallbackOnDegradedSlot, cbCtx); err != nil {
				return nil, err
			}
		}
		cbCtx.Slot, cbCtx.AgentID = 0, ""
		cbCtx.Record = &result.Iterations[len(result.Iterations)-1]
		if err := e.callbacks.ExecuteCallbacks(ctx, CallbackAfterRound, cbCtx); err != nil {
			return nil, err
		}
		cbCtx.Record = nil
	}

	result.Response = population[e.opts.Sampler.Intn(len(population))]
	result.FinalPopulation = append([]string(nil), population...)
	result.Metrics = core.Metrics{
		TotalTime:        time.Since(start),
		AvgDiversity:     diversitySum / float64(len(result.Iterations)),
		TotalGenerations: limiter.Count(),
	}

	if err := e.finish(ctx, cbCtx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) finish(ctx context.Context, cbCtx *CallbackContext, result *core.Result, extra ...CallbackType) error {
	cbCtx.Result = result
	cbCtx.Duration = result.Metrics.TotalTime
	for _, t := range append(extra, CallbackAfterRun) {
		if err := e.callbacks.ExecuteCallbacks(ctx, t, cbCtx); err != nil {
			return err
		}
	}
	e.opts.Logger.Info("Run completed", "run_id", result.RunID, "crisis", result.IsCrisis,
		"generations", result.Metrics.TotalGenerations, "avg_diversity", result.Metrics.AvgDiversity,
		"duration", result.Metrics.TotalTime)
	return nil
}

type slot struct {
	agent  *agent.Agent
	prompt string
}

// runRound produces the next population and records it. prev is nil for
// round 1.
func (e *Engine) runRound(ctx context.Context, runID, query string, params core.Params, round int, prev []string, limiter *core.CallLimiter) (core.IterationRecord, []string, error) {
	ctx, span := e.opts.Tracer.Start(ctx, "rsa.round", trace.WithAttributes(attribute.Int("rsa.round", round)))
	defer span.End()

	start := time.Now()
	slots := make([]slot, params.N)
	subsets := make([][]int, params.N)
	for i, a := range e.agents {
		if round == 1 {
			slots[i] = slot{agent: a, prompt: query}
			continue
		}

		subset := e.opts.Sampler.Sample(len(prev), params.K)
		candidates := make([]string, len(subset))
		for j, idx := range subset {
			candidates[j] = prev[idx]
		}
		prompt, err := BuildAggregationPrompt(query, candidates)
		if err != nil {
			return core.IterationRecord{}, nil, err
		}
		slots[i] = slot{agent: a, prompt: prompt}
		subsets[i] = subset
	}

	population := e.generate(ctx, slots, limiter)

	vectors, err := e.embed(ctx, population)
	if err != nil {
		span.RecordError(err)
		return core.IterationRecord{}, nil, fmt.Errorf("round %d: %w", round, err)
	}

	ids := make([]string, len(e.agents))
	for i, a := range e.agents {
		ids[i] = a.ID()
		md := memory.Metadata{AggregatedFrom: subsets[i], Preview: preview(population[i])}
		if err := e.opts.Store.Record(a.ID(), round, vectors[i], md); err != nil {
			return core.IterationRecord{}, nil, fmt.Errorf("round %d: %w", round, err)
		}
	}
	if err := e.opts.Store.AggregateRound(round, ids); err != nil {
		return core.IterationRecord{}, nil, err
	}

	record := core.IterationRecord{
		Round:      round,
		Population: append([]string(nil), population...),
		Diversity:  e.opts.Store.Diversity(round),
	}
	span.SetAttributes(attribute.Float64("rsa.diversity", record.Diversity))
	e.opts.Logger.Info("Round completed", "run_id", runID, "round", round, "population", len(population),
		"diversity", record.Diversity, "duration", time.Since(start))

	return record, population, nil
}

func (e *Engine) group() *errgroup.Group {
	g := &errgroup.Group{}
	if e.opts.MaxConcurrency > 0 {
		g.SetLimit(e.opts.MaxConcurrency)
	}
	return g
}

// generate runs every slot concurrently and returns once all have answered.
// Index i of the result is written only by the goroutine serving slot i.
func (e *Engine) generate(ctx context.Context, slots []slot, limiter *core.CallLimiter) []string {
	out := make([]string, len(slots))
	g := e.group()
	for i, s := range slots {
		g.Go(func() error {
			limiter.Add(1)
			out[i] = s.agent.Respond(ctx, s.prompt)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// embed embeds the population with the agent owning each slot.
func (e *Engine) embed(ctx context.Context, population []string) ([]core.Vector, error) {
	out := make([]core.Vector, len(population))
	g := e.group()
	for i, text := range population {
		a := e.agents[i]
		g.Go(func() error {
			v, err := a.Embed(ctx, text)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLength {
		return s
	}
	return string(r[:previewLength])
}
