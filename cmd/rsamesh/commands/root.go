// Package commands implements the rsamesh command line interface.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/rsamesh"
	"github.com/hupe1980/rsamesh/config"
	"github.com/hupe1980/rsamesh/logging"
)

type globalFlags struct {
	configPath string
	logLevel   string
	seed       uint64
	agents     int
	json       bool
}

// NewRootCmd builds the rsamesh command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "rsamesh",
		Short: "rsamesh - Recursive Self-Aggregation over a population of agents",
		Long: `rsamesh answers a query with a population of agents that repeatedly
aggregate each other's answers (Recursive Self-Aggregation).

The number of rounds and the aggregation subset size adapt to the estimated
complexity of the query unless set explicitly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors:      true,
		SilenceUsage:       true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&g.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	pf.Uint64Var(&g.seed, "seed", 0, "seed the sampler for reproducible runs")
	pf.IntVar(&g.agents, "agents", 0, "override the number of agents")
	pf.BoolVar(&g.json, "json", false, "print machine readable JSON")

	root.AddCommand(
		newRunCmd(g),
		newSingleCmd(g),
		newEstimateCmd(g),
		newSweepCmd(g),
	)

	return root
}

// SetVersionInfo sets the version string shown by --version.
func SetVersionInfo(root *cobra.Command, version, commit, date string) {
	root.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

func (g *globalFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		loaded, err := config.Load(g.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if cmd.Flags().Changed("seed") {
		seed := g.seed
		cfg.RSA.Seed = &seed
	}
	if g.agents > 0 {
		cfg.Agents.Count = g.agents
	}

	return cfg, cfg.Validate()
}

func (g *globalFlags) mesh(cmd *cobra.Command) (*rsamesh.Mesh, error) {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Logging.Format,
		Output:    cmd.ErrOrStderr(),
		AddSource: cfg.Logging.AddSource,
		Component: "cli",
	})

	return rsamesh.NewFromConfig(cfg, func(o *rsamesh.Options) { o.Logger = logger })
}

func (g *globalFlags) printer(cmd *cobra.Command) *printer {
	return &printer{out: cmd.OutOrStdout(), json: g.json}
}
