package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

func newSingleCmd(g *globalFlags) *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "single <query>",
		Short: "Generate k candidates and aggregate them once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := g.printer(cmd)

			m, err := g.mesh(cmd)
			if err != nil {
				return p.Error(cmd.ErrOrStderr(), "Failed to set up the mesh", err)
			}
			defer func() { _ = m.Close() }()

			res, err := m.SingleStep(cmd.Context(), strings.Join(args, " "), k)
			if err != nil {
				return p.Error(cmd.ErrOrStderr(), "Single step aggregation failed", err)
			}

			return p.SingleStep(res)
		},
	}

	cmd.Flags().IntVar(&k, "k", 3, "number of candidates")

	return cmd
}
