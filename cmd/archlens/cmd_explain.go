package main

import (
	"fmt"
	"log/slog"

	"github.com/crimson-sun/archlens/internal/config"
	"github.com/crimson-sun/archlens/internal/corpus"
	"github.com/crimson-sun/archlens/internal/pipeline"
	"github.com/spf13/cobra"
)

var explainFlags struct {
	corpus   string
	target   string
	output   string
	topK     int
	provider string
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Predict the target's architecture and write the SHAP explanation",
	Args:  cobra.NoArgs,
	RunE:  runExplain,
}

func init() {
	f := explainCmd.Flags()
	f.StringVar(&explainFlags.corpus, "corpus", "", "Labeled case studies JSON")
	f.StringVar(&explainFlags.target, "target", "", "Target requirements JSON")
	f.StringVarP(&explainFlags.output, "output", "o", "", "Explanation artifact path ('-' for stdout)")
	f.IntVar(&explainFlags.topK, "top-k", 0, "Number of features to keep")
	f.StringVar(&explainFlags.provider, "embedder", "", "Embedding provider (onnx, hashing, openai)")
}

func runExplain(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(func(c *config.Config) {
		f := cmd.Flags()
		if f.Changed("corpus") {
			c.Corpus = explainFlags.corpus
		}
		if f.Changed("target") {
			c.Target = explainFlags.target
		}
		if f.Changed("output") {
			c.Output.Path = explainFlags.output
		}
		if f.Changed("top-k") {
			c.Classifier.TopK = explainFlags.topK
		}
		if f.Changed("embedder") {
			c.Embedder.Provider = explainFlags.provider
		}
	})
	if err != nil {
		return err
	}

	eng, emb, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer emb.Close()

	p := pipeline.New(corpus.Files{CorpusPath: cfg.Corpus, TargetPath: cfg.Target}, eng, openOutput(cmd.OutOrStdout(), cfg))
	defer p.Close()

	res, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}
	if !cfg.StdoutArtifact() {
		fmt.Fprintf(cmd.OutOrStdout(), "Predicted architecture: %s\n", res.Explanation.PredictedArchitecture)
	}
	slog.Debug("explain done", "converged", res.Converged, "iterations", res.Iterations)
	return nil
}
