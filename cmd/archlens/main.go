// archlens predicts a software architecture style for a set of requirements
// and explains the prediction in terms of embedding dimensions.
//
// Usage:
//
//	archlens explain  [--corpus f] [--target f] [-o f] [--top-k n] [--embedder p]
//	archlens generate [description] [-o f]
//	archlens score    [--target f] [-o f]
//	archlens justify  [--artifact f] [--description f] [-o f] [--llm]
//	archlens run      [description]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/crimson-sun/archlens/internal/config"
	"github.com/crimson-sun/archlens/internal/logging"
	"github.com/spf13/cobra"
)

var rootFlags struct {
	configPath string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "archlens",
	Short: "Explainable architecture-style classification",
	Long: "archlens embeds labeled case studies, fits a linear classifier, predicts\n" +
		"the architecture of a target requirement set and ranks the embedding\n" +
		"dimensions that drove the prediction.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "YAML config file (overrides ARCHLENS_CONFIG)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(justifyCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.Version = config.Version
}

// setup loads configuration, applies command flag overrides and installs
// the logger. Flags win over the environment, which wins over the file.
func setup(override func(*config.Config)) (config.Config, error) {
	if rootFlags.configPath != "" {
		os.Setenv("ARCHLENS_CONFIG", rootFlags.configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	if override != nil {
		override(&cfg)
	}
	logging.Init(cfg.StdoutArtifact(), logging.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "archlens:", err)
		os.Exit(1)
	}
}
