package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rsamesh/core"
	"github.com/hupe1980/rsamesh/model"
)

var (
	_ model.Model           = (*Model)(nil)
	_ core.EmbeddingBackend = (*Embedder)(nil)
)

func newServer(t *testing.T, path, body string, seen *map[string]any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		if seen != nil {
			_ = json.Unmarshal(raw, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func clientOpts(url string) []option.RequestOption {
	return []option.RequestOption{option.WithBaseURL(url), option.WithAPIKey("test"), option.WithMaxRetries(0)}
}

func TestModel_Generate(t *testing.T) {
	var req map[string]any
	srv := newServer(t, "/chat/completions", `{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  345  "}}]
	}`, &req)

	m := NewModel(func(o *Options) { o.ClientOptions = clientOpts(srv.URL) })
	out, err := m.Generate(context.Background(), core.GenerationRequest{Prompt: "What is 15*23?", MaxLength: 64, Temperature: 0.2})
	require.NoError(t, err)

	assert.Equal(t, "345", out)
	assert.Equal(t, "gpt-4o-mini", req["model"])
	assert.EqualValues(t, 64, req["max_completion_tokens"])
	assert.InDelta(t, 0.2, req["temperature"], 1e-9)
	assert.Equal(t, model.Info{Name: "gpt-4o-mini", Provider: "openai"}, m.Info())
}

func TestModel_GenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"message": "boom", "type": "server_error"}}`)
	}))
	t.Cleanup(srv.Close)

	m := NewModel(func(o *Options) { o.ClientOptions = clientOpts(srv.URL) })
	_, err := m.Generate(context.Background(), core.GenerationRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai api error")
}

func TestEmbedder_Embed(t *testing.T) {
	var req map[string]any
	srv := newServer(t, "/embeddings", `{
		"object": "list", "model": "text-embedding-3-small",
		"data": [{"object": "embedding", "index": 0, "embedding": [0.6, 0.8, 0.0]}],
		"usage": {"prompt_tokens": 1, "total_tokens": 1}
	}`, &req)

	e := NewEmbedder(func(o *EmbedderOptions) {
		o.Dimensions = 3
		o.ClientOptions = clientOpts(srv.URL)
	})
	v, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, core.Vector{0.6, 0.8, 0}, v)
	assert.Equal(t, 3, e.Dimensions())
	assert.Equal(t, "hello", req["input"])
	assert.EqualValues(t, 3, req["dimensions"])
}
