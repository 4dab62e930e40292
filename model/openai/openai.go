// Package openai provides generation and embedding backends on top of the
// OpenAI API: Model uses Chat Completions, Embedder uses the Embeddings
// endpoint.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/rsamesh/core"
	"github.com/hupe1980/rsamesh/model"
)

// Options configure the OpenAI model adapter. Temperature and
// MaxCompletionTokens apply when a request does not set its own.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	ClientOptions       []option.RequestOption // used by NewModel only
}

// Model wraps the OpenAI Chat Completions API behind model.Model.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client. The API key
// is read from OPENAI_API_KEY unless set through ClientOptions.
func NewModel(optFns ...func(o *Options)) *Model {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	client := openai.NewClient(opts.ClientOptions...)
	return NewModelFromClient(&client, optFns...)
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "openai"}
}

// Generate implements core.GenerationBackend.
func (m *Model) Generate(ctx context.Context, req core.GenerationRequest) (string, error) {
	temperature := m.opts.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	maxTokens := m.opts.MaxCompletionTokens
	if req.MaxLength > 0 {
		maxTokens = int64(req.MaxLength)
	}

	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage(req.Prompt)},
		Model:               m.opts.Model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api error: empty choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// EmbedderOptions configure the OpenAI embeddings adapter.
type EmbedderOptions struct {
	Model         string
	Dimensions    int
	ClientOptions []option.RequestOption // used by NewEmbedder only
}

// Embedder wraps the OpenAI Embeddings API behind core.EmbeddingBackend.
type Embedder struct {
	client *openai.Client
	opts   EmbedderOptions
}

// NewEmbedder creates an Embedder using the official client.
func NewEmbedder(optFns ...func(o *EmbedderOptions)) *Embedder {
	var opts EmbedderOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	client := openai.NewClient(opts.ClientOptions...)
	return NewEmbedderFromClient(&client, optFns...)
}

// NewEmbedderFromClient creates an Embedder from an existing client. The
// default model is text-embedding-3-small reduced to 384 dimensions.
func NewEmbedderFromClient(client *openai.Client, optFns ...func(o *EmbedderOptions)) *Embedder {
	opts := EmbedderOptions{
		Model:      openai.EmbeddingModelTextEmbedding3Small,
		Dimensions: 384,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Embedder{client: client, opts: opts}
}

// Dimensions implements core.EmbeddingBackend.
func (e *Embedder) Dimensions() int { return e.opts.Dimensions }

// Embed implements core.EmbeddingBackend.
func (e *Embedder) Embed(ctx context.Context, text string) (core.Vector, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:      e.opts.Model,
		Dimensions: openai.Int(int64(e.opts.Dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai api error: empty embedding data")
	}

	return core.Vector(resp.Data[0].Embedding), nil
}
