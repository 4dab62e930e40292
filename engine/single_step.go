package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/rsamesh/core"
	"github.com/hupe1980/rsamesh/internal/util"
)

// SingleStep is the cheap alternative to Run: k candidates are generated
// concurrently by agents assigned round-robin (candidate i goes to agent
// i mod N), then the first agent aggregates them in one more call. The
// store is not touched.
func (e *Engine) SingleStep(ctx context.Context, query string, k int, optFns ...func(o *RunOptions)) (*core.SingleStepResult, error) {
	var ro RunOptions
	for _, fn := range optFns {
		fn(&ro)
	}

	if k < 1 {
		return nil, core.NewConfigurationError("k", "must be >= 1, got %d", k)
	}

	alert := e.checkSafety(query, ro.UserState)
	limiter := core.NewCallLimiter(e.opts.MaxGenerations)
	if alert == "" {
		if err := limiter.Reserve(k + 1); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	runID := util.NewID()

	ctx, span := e.opts.Tracer.Start(ctx, "rsa.single_step", trace.WithAttributes(
		attribute.String("rsa.run_id", runID),
		attribute.Int("rsa.k", k),
	))
	defer span.End()

	cbCtx := &CallbackContext{RunID: runID, Query: query, Mode: core.MethodSingleStep, Params: core.Params{N: len(e.agents), K: k, T: 1}}
	fail := func(err error) (*core.SingleStepResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	e.recordQuery(nil)
	if err := e.callbacks.ExecuteCallbacks(ctx, CallbackBeforeRun, cbCtx); err != nil {
		return fail(err)
	}

	if alert != "" {
		res := &core.SingleStepResult{RunID: runID, Response: alert, IsCrisis: true, Candidates: []string{}, Method: core.MethodSingleStep}
		if err := e.finish(ctx, cbCtx, &core.Result{RunID: runID, Response: alert, IsCrisis: true, Iterations: []core.IterationRecord{}, Metrics: core.Metrics{TotalTime: time.Since(start)}}, CallbackOnCrisis); err != nil {
			return fail(err)
		}
		return res, nil
	}

	slots := make([]slot, k)
	for i := range slots {
		slots[i] = slot{agent: e.agents[i%len(e.agents)], prompt: query}
	}
	candidates := e.generate(ctx, slots, limiter)

	prompt, err := BuildAggregationPrompt(query, candidates)
	if err != nil {
		return fail(err)
	}
	limiter.Add(1)
	response := e.agents[0].Respond(ctx, prompt)

	res := &core.SingleStepResult{
		RunID:      runID,
		Response:   response,
		Candidates: candidates,
		Method:     core.MethodSingleStep,
	}

	summary := &core.Result{
		RunID:           runID,
		Response:        response,
		Iterations:      []core.IterationRecord{},
		FinalPopulation: candidates,
		Params:          cbCtx.Params,
		Metrics:         core.Metrics{TotalTime: time.Since(start), TotalGenerations: limiter.Count()},
	}
	if err := e.finish(ctx, cbCtx, summary); err != nil {
		return fail(err)
	}
	return res, nil
}
