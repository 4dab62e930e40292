package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/rsamesh/sweep"
)

func newSweepCmd(g *globalFlags) *cobra.Command {
	var (
		complexity  string
		maxConfigs  int
		concurrency int
		apply       string
		grid        = sweep.DefaultGrid()
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Grid search N, K and T against benchmark queries",
		Example: `  rsamesh sweep --complexity micro --max-configs 8
  rsamesh sweep --complexity medium --n 2,4 --k 1,2 --t 1,2,3 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := g.printer(cmd)

			c, err := sweep.ParseComplexity(complexity)
			if err != nil {
				return p.Error(cmd.ErrOrStderr(), "Invalid complexity", err)
			}

			m, err := g.mesh(cmd)
			if err != nil {
				return p.Error(cmd.ErrOrStderr(), "Failed to set up the mesh", err)
			}
			defer func() { _ = m.Close() }()

			s := sweep.New(m.SweepFactory(), func(o *sweep.Options) {
				o.MaxConfigs = maxConfigs
				o.Concurrency = concurrency
				o.Logger = m.Logger()
			})
			results, err := s.Run(cmd.Context(), c, grid)
			if err != nil {
				return p.Error(cmd.ErrOrStderr(), "Sweep failed", err)
			}

			if apply != "" {
				best, err := sweep.Best(sweep.Metric(apply), results)
				if err != nil {
					return p.Error(cmd.ErrOrStderr(), "Cannot pick a configuration", err)
				}
				if err := sweep.Apply(m.Selector(), best); err != nil {
					return p.Error(cmd.ErrOrStderr(), "Cannot apply configuration", err)
				}
				if !p.json {
					green.Fprintf(p.out, "✓ %s tier now uses %s\n", c.Tier(), best)
				}
			}

			if p.json {
				return p.JSON(results)
			}
			fmt.Fprint(p.out, sweep.Report(results))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&complexity, "complexity", string(sweep.ComplexityMicro), "benchmark group: micro, medium or large")
	f.IntVar(&maxConfigs, "max-configs", 0, "test at most this many configurations")
	f.IntVar(&concurrency, "concurrency", 1, "configurations tested in parallel")
	f.StringVar(&apply, "apply", "", "install the best configuration by metric (latency, diversity, quality)")
	f.IntSliceVar(&grid.N, "n", grid.N, "agent counts to try")
	f.IntSliceVar(&grid.K, "k", grid.K, "subset sizes to try")
	f.IntSliceVar(&grid.T, "t", grid.T, "round counts to try")

	return cmd
}
