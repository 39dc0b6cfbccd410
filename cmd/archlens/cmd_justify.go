package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/crimson-sun/archlens/internal/config"
	"github.com/crimson-sun/archlens/internal/justify"
	"github.com/crimson-sun/archlens/internal/model"
	"github.com/spf13/cobra"
)

var justifyFlags struct {
	artifact    string
	description string
	output      string
	useLLM      bool
}

var justifyCmd = &cobra.Command{
	Use:   "justify",
	Short: "Write a natural-language justification for an explanation artifact",
	Args:  cobra.NoArgs,
	RunE:  runJustify,
}

func init() {
	f := justifyCmd.Flags()
	f.StringVar(&justifyFlags.artifact, "artifact", "", "Explanation artifact (default: configured output)")
	f.StringVar(&justifyFlags.description, "description", "", "File holding the system description (LLM mode)")
	f.StringVarP(&justifyFlags.output, "output", "o", "", "Justification path ('-' for stdout)")
	f.BoolVar(&justifyFlags.useLLM, "llm", false, "Ask the chat model instead of using the template")
}

func runJustify(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(func(c *config.Config) {
		f := cmd.Flags()
		if f.Changed("artifact") {
			c.Output.Path = justifyFlags.artifact
		}
		if f.Changed("output") {
			c.Output.Justification = justifyFlags.output
		}
	})
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfg.Output.Path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	var exp model.Explanation
	if err := json.Unmarshal(data, &exp); err != nil {
		return fmt.Errorf("read artifact: %s: %w", cfg.Output.Path, err)
	}

	var desc string
	if justifyFlags.description != "" {
		b, err := os.ReadFile(justifyFlags.description)
		if err != nil {
			return fmt.Errorf("read description: %w", err)
		}
		desc = string(b)
	}

	a := justify.New(nil, cfg.Classifier.JustifyK)
	if justifyFlags.useLLM {
		chat, err := newChat(cfg)
		if err != nil {
			return err
		}
		a = justify.New(chat, cfg.Classifier.JustifyK)
	}
	text, err := a.Justify(cmd.Context(), exp, desc)
	if err != nil {
		return err
	}
	return writeBytes(cmd.OutOrStdout(), cfg.Output.Justification, []byte(text+"\n"))
}
