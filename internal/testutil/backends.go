package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/rsamesh/core"
)

// Phase names recorded by a Recorder.
const (
	PhaseGenerate = "generate"
	PhaseEmbed    = "embed"
)

// Recorder captures the order of capability calls across goroutines.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

// Record appends a phase event.
func (r *Recorder) Record(phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, phase)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.events...)
}

// Count returns how many events of phase were recorded.
func (r *Recorder) Count(phase string) int {
	n := 0
	for _, e := range r.Events() {
		if e == phase {
			n++
		}
	}
	return n
}

// RecordingGenerator records every call before delegating.
type RecordingGenerator struct {
	Next     core.GenerationBackend
	Recorder *Recorder

	mu      sync.Mutex
	prompts []string
}

// Generate implements core.GenerationBackend.
func (g *RecordingGenerator) Generate(ctx context.Context, req core.GenerationRequest) (string, error) {
	g.Recorder.Record(PhaseGenerate)
	g.mu.Lock()
	g.prompts = append(g.prompts, req.Prompt)
	g.mu.Unlock()
	return g.Next.Generate(ctx, req)
}

// Prompts returns the prompts seen so far.
func (g *RecordingGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]string(nil), g.prompts...)
}

// RecordingEmbedder records every call before delegating.
type RecordingEmbedder struct {
	Next     core.EmbeddingBackend
	Recorder *Recorder
}

// Embed implements core.EmbeddingBackend.
func (e *RecordingEmbedder) Embed(ctx context.Context, text string) (core.Vector, error) {
	e.Recorder.Record(PhaseEmbed)
	return e.Next.Embed(ctx, text)
}

// Dimensions implements core.EmbeddingBackend.
func (e *RecordingEmbedder) Dimensions() int { return e.Next.Dimensions() }

// ErrBackend is returned by FailingGenerator by default.
var ErrBackend = errors.New("backend unavailable")

// FailingGenerator always fails.
type FailingGenerator struct {
	Err   error
	calls atomic.Int32
}

// Generate implements core.GenerationBackend.
func (g *FailingGenerator) Generate(context.Context, core.GenerationRequest) (string, error) {
	g.calls.Add(1)
	if g.Err != nil {
		return "", g.Err
	}
	return "", ErrBackend
}

// Calls returns the number of calls.
func (g *FailingGenerator) Calls() int { return int(g.calls.Load()) }

// EchoGenerator answers with a fixed prefix and a call counter, producing
// distinct responses.
type EchoGenerator struct {
	Prefix string
	n      atomic.Int64
}

// Generate implements core.GenerationBackend.
func (g *EchoGenerator) Generate(ctx context.Context, _ core.GenerationRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s answer %d", g.Prefix, g.n.Add(1)), nil
}

// WrongDimensionEmbedder claims Dims dimensions but returns one less.
type WrongDimensionEmbedder struct {
	Dims int
}

// Embed implements core.EmbeddingBackend.
func (e WrongDimensionEmbedder) Embed(context.Context, string) (core.Vector, error) {
	return make(core.Vector, e.Dims-1), nil
}

// Dimensions implements core.EmbeddingBackend.
func (e WrongDimensionEmbedder) Dimensions() int { return e.Dims }
