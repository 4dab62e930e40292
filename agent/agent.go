package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/rsamesh/core"
	"github.com/hupe1980/rsamesh/embedding"
	"github.com/hupe1980/rsamesh/internal/util"
	"github.com/hupe1980/rsamesh/logging"
)

var personaTemplate = util.MustParseTemplate("persona", `You are {{.Name}}, a helpful desktop assistant.
Your role: {{.Role}}
Be helpful, honest, and concise.

User query:
{{.Prompt}}

Your response:`)

// Options configures an Agent.
type Options struct {
	Role            string
	MaxLength       int
	Temperature     float64
	Timeout         time.Duration // per capability call, 0 disables
	ContextCapacity int
	Logger          logging.Logger
}

// Agent is one member of the population.
type Agent struct {
	id   string
	name string
	opts Options

	gen core.GenerationBackend
	emb core.EmbeddingBackend
	log *ContextLog
}

// New creates an Agent. Defaults: role "assistant", max length 512,
// temperature 0.8, context capacity 100, no timeout.
func New(id, name string, gen core.GenerationBackend, emb core.EmbeddingBackend, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Role:            "assistant",
		MaxLength:       512,
		Temperature:     0.8,
		ContextCapacity: DefaultContextCapacity,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Agent{
		id:   id,
		name: name,
		opts: opts,
		gen:  gen,
		emb:  emb,
		log:  NewContextLog(opts.ContextCapacity),
	}
}

// ID returns the stable identifier.
func (a *Agent) ID() string { return a.id }

// Name returns the display name.
func (a *Agent) Name() string { return a.name }

// Role returns the role description.
func (a *Agent) Role() string { return a.opts.Role }

// Dimensions returns the length of vectors produced by Embed.
func (a *Agent) Dimensions() int { return a.emb.Dimensions() }

// Context returns the agent's context log.
func (a *Agent) Context() *ContextLog { return a.log }

// Prompt wraps prompt in the agent persona.
func (a *Agent) Prompt(prompt string) string {
	out, err := personaTemplate.Render(map[string]string{"Name": a.name, "Role": a.opts.Role, "Prompt": prompt})
	if err != nil {
		// the template only reads string fields
		return prompt
	}
	return out
}

func (a *Agent) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.opts.Timeout > 0 {
		return context.WithTimeout(ctx, a.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// Respond generates a reply to prompt. It never returns an error: failures
// and timeouts produce an "[error] {name} couldn't generate response: ..."
// string instead.
func (a *Agent) Respond(ctx context.Context, prompt string) string {
	callCtx, cancel := a.callContext(ctx)
	defer cancel()

	start := time.Now()
	text, err := a.gen.Generate(callCtx, core.GenerationRequest{
		Prompt:      a.Prompt(prompt),
		MaxLength:   a.opts.MaxLength,
		Temperature: a.opts.Temperature,
	})
	if err == nil {
		err = callCtx.Err()
	}
	if err != nil {
		a.opts.Logger.Warn("Generation degraded", "agent_id", a.id, "duration", time.Since(start), "error", err)
		return fmt.Sprintf("%s %s couldn't generate response: %v", core.ErrorMarker, a.name, err)
	}

	text = strings.TrimSpace(text)
	a.log.Add(Entry{Prompt: prompt, Response: text, Timestamp: time.Now()})
	a.opts.Logger.Debug("Generation completed", "agent_id", a.id, "duration", time.Since(start))

	return text
}

// Embed maps text to a unit vector of length Dimensions. A backend failure
// or timeout yields the zero vector; a vector of the wrong length is
// reported as core.ErrDimensionMismatch.
func (a *Agent) Embed(ctx context.Context, text string) (core.Vector, error) {
	callCtx, cancel := a.callContext(ctx)
	defer cancel()

	dims := a.emb.Dimensions()
	v, err := a.emb.Embed(callCtx, text)
	if err != nil {
		a.opts.Logger.Warn("Embedding degraded", "agent_id", a.id, "error", err)
		return make(core.Vector, dims), nil
	}
	if len(v) != dims {
		return nil, fmt.Errorf("agent %s: %w: got %d, want %d", a.id, core.ErrDimensionMismatch, len(v), dims)
	}

	return embedding.Normalize(v), nil
}
