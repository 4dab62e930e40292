// Package metrics exports Prometheus metrics for RSA runs. A Collector is
// attached to an engine through its lifecycle callbacks:
//
//	reg := prometheus.NewRegistry()
//	c := metrics.NewCollector(reg, "rsamesh")
//	eng, err := engine.New(agents, func(o *engine.Options) {
//	    o.Callbacks = c.Callbacks()
//	})
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/rsamesh/engine"
)

// Run outcomes used as label values.
const (
	OutcomeCompleted = "completed"
	OutcomeCrisis    = "crisis"
)

// Collector holds the run, round and generation metrics.
type Collector struct {
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	roundsTotal      prometheus.Counter
	roundDiversity   prometheus.Histogram
	generationsTotal *prometheus.CounterVec
	degradedSlots    *prometheus.CounterVec
	tierSelections   *prometheus.CounterVec
	avgDiversity     prometheus.Gauge
}

// NewCollector registers the metrics on reg under namespace. A nil reg
// registers on prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of finished runs",
			},
			[]string{"mode", "outcome"},
		),
		runDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Run duration in seconds",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"mode"},
		),
		roundsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Total number of completed rounds",
		}),
		roundDiversity: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_diversity",
			Help:      "Mean pairwise cosine distance of a round's population",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		generationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Total number of generation calls",
			},
			[]string{"mode"},
		),
		degradedSlots: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "degraded_slots_total",
				Help:      "Slots whose generation failed and carried an error marker",
			},
			[]string{"agent_id"},
		),
		tierSelections: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tier_selections_total",
				Help:      "Runs per adaptive complexity tier",
			},
			[]string{"tier"},
		),
		avgDiversity: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_avg_diversity",
			Help:      "Average diversity of the most recent completed run",
		}),
	}
}

// Callbacks returns the engine callbacks feeding the collector.
func (c *Collector) Callbacks() []engine.Callback {
	return []engine.Callback{
		engine.NewFunctionCallback(engine.CallbackBeforeRun, c.beforeRun),
		engine.NewFunctionCallback(engine.CallbackAfterRound, c.afterRound),
		engine.NewFunctionCallback(engine.CallbackOnDegradedSlot, c.onDegradedSlot),
		engine.NewFunctionCallback(engine.CallbackAfterRun, c.afterRun),
	}
}

func (c *Collector) beforeRun(_ context.Context, cbCtx *engine.CallbackContext) error {
	if cbCtx.Tier != "" {
		c.tierSelections.WithLabelValues(cbCtx.Tier).Inc()
	}
	return nil
}

func (c *Collector) afterRound(_ context.Context, cbCtx *engine.CallbackContext) error {
	c.roundsTotal.Inc()
	if cbCtx.Record != nil {
		c.roundDiversity.Observe(cbCtx.Record.Diversity)
	}
	return nil
}

func (c *Collector) onDegradedSlot(_ context.Context, cbCtx *engine.CallbackContext) error {
	c.degradedSlots.WithLabelValues(cbCtx.AgentID).Inc()
	return nil
}

func (c *Collector) afterRun(_ context.Context, cbCtx *engine.CallbackContext) error {
	res := cbCtx.Result
	if res == nil {
		return nil
	}

	outcome := OutcomeCompleted
	if res.IsCrisis {
		outcome = OutcomeCrisis
	}
	c.runsTotal.WithLabelValues(cbCtx.Mode, outcome).Inc()
	c.runDuration.WithLabelValues(cbCtx.Mode).Observe(cbCtx.Duration.Seconds())
	c.generationsTotal.WithLabelValues(cbCtx.Mode).Add(float64(res.Metrics.TotalGenerations))
	if !res.IsCrisis && len(res.Iterations) > 0 {
		c.avgDiversity.Set(res.Metrics.AvgDiversity)
	}
	return nil
}
