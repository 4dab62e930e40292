package core

import "context"

// GenerationRequest carries one text generation call.
type GenerationRequest struct {
	Prompt      string
	MaxLength   int
	Temperature float64
}

// GenerationBackend produces text for a prompt. Implementations must be safe
// for concurrent use and should honor ctx cancellation.
type GenerationBackend interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// EmbeddingBackend maps text to a vector of a fixed dimension.
type EmbeddingBackend interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dimensions() int
}

// GenerationFunc adapts a plain function to GenerationBackend.
type GenerationFunc func(ctx context.Context, req GenerationRequest) (string, error)

// Generate calls f.
func (f GenerationFunc) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	return f(ctx, req)
}
