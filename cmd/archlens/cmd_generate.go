package main

import (
	"errors"

	"github.com/crimson-sun/archlens/internal/config"
	"github.com/crimson-sun/archlens/internal/requirements"
	"github.com/spf13/cobra"
)

var generateFlags struct {
	output string
}

var generateCmd = &cobra.Command{
	Use:   "generate [description]",
	Short: "Generate a target requirement set from a system description",
	Long: "generate asks the chat model for functional and non-functional\n" +
		"requirements of the described system and saves them as the target JSON.\n" +
		"The description comes from the arguments, stdin, or a prompt.",
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateFlags.output, "output", "o", "", "Target JSON path (default: configured target)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := setup(func(c *config.Config) {
		if cmd.Flags().Changed("output") {
			c.Target = generateFlags.output
		}
	})
	if err != nil {
		return err
	}

	desc, err := readDescription(cmd.Context(), args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if desc == "" {
		return errors.New("no system description given")
	}

	chat, err := newChat(cfg)
	if err != nil {
		return err
	}
	res, err := requirements.New(chat, 0).Generate(cmd.Context(), desc)
	if err != nil {
		return err
	}
	return writeBytes(cmd.OutOrStdout(), cfg.Target, res.JSON)
}
