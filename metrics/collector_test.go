package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rsamesh/agent"
	"github.com/hupe1980/rsamesh/core"
	"github.com/hupe1980/rsamesh/embedding"
	"github.com/hupe1980/rsamesh/engine"
	internaltest "github.com/hupe1980/rsamesh/internal/testutil"
)

func newInstrumentedEngine(t *testing.T, agents []*agent.Agent) (*engine.Engine, *Collector) {
	t.Helper()

	c := NewCollector(prometheus.NewRegistry(), "test")
	e, err := engine.New(agents, func(o *engine.Options) {
		o.Sampler = core.NewSampler(7)
		o.Callbacks = c.Callbacks()
	})
	require.NoError(t, err)
	return e, c
}

func TestCollector_Run(t *testing.T) {
	emb := embedding.NewHashEmbedder()
	agents := internaltest.NewAgents(3, &internaltest.EchoGenerator{Prefix: "m"}, emb)
	agents[2] = agent.New("broken", "Broken", &internaltest.FailingGenerator{}, emb)

	e, c := newInstrumentedEngine(t, agents)
	res, err := e.Run(context.Background(), "Calculate 5 + 3", func(o *engine.RunOptions) { o.K = 2 })
	require.NoError(t, err)

	rounds := float64(len(res.Iterations))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues(engine.ModeRSA, OutcomeCompleted)))
	assert.Equal(t, rounds, testutil.ToFloat64(c.roundsTotal))
	assert.Equal(t, 3*rounds, testutil.ToFloat64(c.generationsTotal.WithLabelValues(engine.ModeRSA)))
	assert.Equal(t, rounds, testutil.ToFloat64(c.degradedSlots.WithLabelValues("broken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tierSelections.WithLabelValues("simple")))
	assert.InDelta(t, res.Metrics.AvgDiversity, testutil.ToFloat64(c.avgDiversity), 1e-12)
	assert.Equal(t, 1, testutil.CollectAndCount(c.runDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(c.roundDiversity))
}

func TestCollector_Crisis(t *testing.T) {
	e, c := newInstrumentedEngine(t, internaltest.NewAgents(2, &internaltest.FailingGenerator{}, embedding.NewHashEmbedder()))

	res, err := e.Run(context.Background(), "I can't go on", func(o *engine.RunOptions) { o.K, o.T = 1, 2 })
	require.NoError(t, err)
	require.True(t, res.IsCrisis)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues(engine.ModeRSA, OutcomeCrisis)))
	assert.Zero(t, testutil.ToFloat64(c.roundsTotal))
	assert.Zero(t, testutil.ToFloat64(c.generationsTotal.WithLabelValues(engine.ModeRSA)))
}

func TestCollector_SingleStep(t *testing.T) {
	e, c := newInstrumentedEngine(t, internaltest.NewAgents(2, &internaltest.EchoGenerator{}, embedding.NewHashEmbedder()))

	_, err := e.SingleStep(context.Background(), "q", 3)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues(core.MethodSingleStep, OutcomeCompleted)))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.generationsTotal.WithLabelValues(core.MethodSingleStep)))
}

func TestNewCollector_RejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg, "dup")

	assert.Panics(t, func() { NewCollector(reg, "dup") })
}
