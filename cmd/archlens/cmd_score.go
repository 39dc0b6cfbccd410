package main

import (
	"fmt"

	"github.com/crimson-sun/archlens/internal/config"
	"github.com/crimson-sun/archlens/internal/corpus"
	"github.com/crimson-sun/archlens/internal/heuristic"
	"github.com/spf13/cobra"
)

var scoreFlags struct {
	target string
	output string
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Predict the target's architecture by keyword counts",
	Args:  cobra.NoArgs,
	RunE:  runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scoreFlags.target, "target", "", "Target requirements JSON")
	f.StringVarP(&scoreFlags.output, "output", "o", "", "Report path ('-' for stdout, default: configured report)")
}

func runScore(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(func(c *config.Config) {
		if cmd.Flags().Changed("target") {
			c.Target = scoreFlags.target
		}
		if cmd.Flags().Changed("output") {
			c.Output.Report = scoreFlags.output
		}
	})
	if err != nil {
		return err
	}

	target, err := corpus.LoadTarget(cfg.Target)
	if err != nil {
		return err
	}
	report := heuristic.New(heuristic.DefaultRules).Predict(target)
	if err := writeJSON(cmd.OutOrStdout(), cfg.Output.Report, report); err != nil {
		return err
	}
	if cfg.Output.Report != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "Keyword prediction: %s\n", report.PredictedArchitecture)
	}
	return nil
}
