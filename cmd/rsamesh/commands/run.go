package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/rsamesh/agent"
	"github.com/hupe1980/rsamesh/engine"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		k, t  int
		state agent.UserState
	)

	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Answer a query with Recursive Self-Aggregation",
		Example: `  rsamesh run "What is 15*23?"
  rsamesh run --k 2 --t 3 --seed 42 "Explain recursion"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := g.printer(cmd)

			m, err := g.mesh(cmd)
			if err != nil {
				return p.Error(cmd.ErrOrStderr(), "Failed to set up the mesh", err)
			}
			defer func() { _ = m.Close() }()

			res, err := m.Run(cmd.Context(), strings.Join(args, " "), func(o *engine.RunOptions) {
				o.K, o.T = k, t
				o.UserState = state
			})
			if err != nil {
				return p.Error(cmd.ErrOrStderr(), "Run failed", err)
			}

			return p.Result(res)
		},
	}

	f := cmd.Flags()
	f.IntVar(&k, "k", 0, "aggregation subset size (0 = adaptive)")
	f.IntVar(&t, "t", 0, "number of rounds (0 = adaptive)")
	f.BoolVar(&state.RecoveryStatus, "recovery", false, "the user is in recovery")
	f.IntVar(&state.StressLevel, "stress", 0, "user stress level 0-10")
	f.StringVar(&state.AnchorReason, "anchor", "", "personal anchor shown with wellbeing reminders")

	return cmd
}
