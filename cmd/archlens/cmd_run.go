package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/crimson-sun/archlens/internal/corpus"
	"github.com/crimson-sun/archlens/internal/heuristic"
	"github.com/crimson-sun/archlens/internal/justify"
	"github.com/crimson-sun/archlens/internal/model"
	"github.com/crimson-sun/archlens/internal/pipeline"
	"github.com/crimson-sun/archlens/internal/requirements"
	"github.com/spf13/cobra"
)

var runFlags struct {
	useLLM bool
}

var runCmd = &cobra.Command{
	Use:   "run [description]",
	Short: "Generate, score, explain and justify in one go",
	Long: "run takes a system description, generates its requirements, predicts\n" +
		"the architecture by keywords and by the learned classifier, and prints\n" +
		"the explanation with a justification. Every intermediate file is saved.",
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runFlags.useLLM, "llm", false, "Justify with the chat model instead of the template")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := setup(nil)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	desc, err := readDescription(ctx, args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if desc == "" {
		return errors.New("no system description given")
	}

	cases, err := corpus.LoadCorpus(cfg.Corpus)
	if err != nil {
		return err
	}
	eng, emb, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer emb.Close()

	chat, err := newChat(cfg)
	if err != nil {
		return err
	}

	gen, err := requirements.New(chat, 0).Generate(ctx, desc)
	if err != nil {
		return err
	}
	if err := writeBytes(out, cfg.Target, gen.JSON); err != nil {
		return err
	}

	report := heuristic.New(heuristic.DefaultRules).Predict(gen.Case)
	if err := writeJSON(out, cfg.Output.Report, report); err != nil {
		return err
	}

	p := pipeline.New(corpus.Static{Cases: cases, Case: gen.Case}, eng, openOutput(cmd.OutOrStdout(), cfg))
	defer p.Close()
	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	a := justify.New(nil, cfg.Classifier.JustifyK)
	if runFlags.useLLM {
		a = justify.New(chat, cfg.Classifier.JustifyK)
	}
	text, err := a.Justify(ctx, res.Explanation, desc)
	if err != nil {
		return err
	}
	if err := writeBytes(out, cfg.Output.Justification, []byte(text+"\n")); err != nil {
		return err
	}

	printSummary(out, report, res.Explanation, cfg.Classifier.JustifyK, text)
	return nil
}

func printSummary(w io.Writer, report heuristic.Report, exp model.Explanation, k int, text string) {
	fmt.Fprintf(w, "\nKeyword prediction:     %s\n", report.PredictedArchitecture)
	fmt.Fprintf(w, "Classifier prediction:  %s\n\n", exp.PredictedArchitecture)
	fmt.Fprintln(w, "Top contributing dimensions:")
	for _, f := range exp.Top(k).TopContributingFeatures {
		fmt.Fprintf(w, "  dimension %-5d %+.6f\n", f.Dimension, f.SHAPValue)
	}
	fmt.Fprintf(w, "\n%s\n", text)
}
