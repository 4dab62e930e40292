package model

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rsamesh/core"
)

var _ Model = (*MockModel)(nil)

func persona(name, query string) string {
	return "You are " + name + ", a helpful desktop assistant.\nYour role: helper\nBe helpful, honest, and concise.\n\nUser query:\n" + query + "\n\nYour response:"
}

func TestMockModel_MathPerPersona(t *testing.T) {
	m := NewMockModel(func(o *MockOptions) {
		o.Personas = map[string]Style{"Ada": StyleMethodical, "Bolt": StyleFast}
	})
	ctx := context.Background()

	a, err := m.Generate(ctx, core.GenerationRequest{Prompt: persona("Ada", "What is 15*23?")})
	require.NoError(t, err)
	b, err := m.Generate(ctx, core.GenerationRequest{Prompt: persona("Bolt", "What is 15 * 23?")})
	require.NoError(t, err)

	assert.Contains(t, a, "345")
	assert.Contains(t, b, "345")
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, m.Calls())
}

func TestMockModel_Deterministic(t *testing.T) {
	m := NewMockModel()
	req := core.GenerationRequest{Prompt: persona("Unknown", "17 sheep, all but 9 die")}

	a, _ := m.Generate(context.Background(), req)
	b, _ := m.Generate(context.Background(), req)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "9")
}

func TestMockModel_Aggregation(t *testing.T) {
	m := NewMockModel()
	ctx := context.Background()

	multi, err := m.Generate(ctx, core.GenerationRequest{Prompt: persona("Ada", "Aggregate these.\n---- Solution 1 ----\nx\n---- Solution 2 ----\ny")})
	require.NoError(t, err)
	assert.Contains(t, multi, "synthesis")
	assert.True(t, strings.HasSuffix(multi, "- Ada"))

	single, err := m.Generate(ctx, core.GenerationRequest{Prompt: persona("Ada", "Refine the candidate solution below.")})
	require.NoError(t, err)
	assert.Contains(t, single, "Reviewing the candidate")
}

func TestMockModel_Generic(t *testing.T) {
	m := NewMockModel()
	out, err := m.Generate(context.Background(), core.GenerationRequest{Prompt: persona("Ada", "Tell me about the weather")})
	require.NoError(t, err)
	assert.Contains(t, out, "asking about: Tell me about the weather...")
}

func TestMockModel_AddResponse(t *testing.T) {
	m := NewMockModel()
	m.AddResponse("weather", "short")
	m.AddResponse("weather today", "long")

	out, _ := m.Generate(context.Background(), core.GenerationRequest{Prompt: persona("Ada", "weather today?")})
	assert.Equal(t, "long", out)
}

func TestMockModel_LatencyHonorsContext(t *testing.T) {
	m := NewMockModel(func(o *MockOptions) { o.Latency = time.Second })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := m.Generate(ctx, core.GenerationRequest{Prompt: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
