package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/rsamesh/adaptive"
)

func newEstimateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate <query>",
		Short: "Show the complexity score and the parameters a query would get",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := g.printer(cmd)

			m, err := g.mesh(cmd)
			if err != nil {
				return p.Error(cmd.ErrOrStderr(), "Failed to set up the mesh", err)
			}
			defer func() { _ = m.Close() }()

			query := strings.Join(args, " ")
			return p.Estimate(adaptive.NewEstimator().Analyze(query), m.Estimate(query))
		},
	}
}
