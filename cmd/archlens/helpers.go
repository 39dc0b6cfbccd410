package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/crimson-sun/archlens/internal/config"
	"github.com/crimson-sun/archlens/internal/engine"
	"github.com/crimson-sun/archlens/internal/engine/embedder"
	"github.com/crimson-sun/archlens/internal/llm"
	"github.com/crimson-sun/archlens/internal/output"
	"github.com/crimson-sun/archlens/internal/output/file"
	"github.com/crimson-sun/archlens/internal/output/multi"
	"github.com/crimson-sun/archlens/internal/output/stdout"
	"github.com/crimson-sun/archlens/internal/output/webhook"
	"github.com/mattn/go-isatty"
)

const analystPersona = "You are a software architecture expert."

// openEngine builds the configured embedder and an engine around it. The
// caller closes the returned embedder.
func openEngine(cfg config.Config) (*engine.Engine, embedder.Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	emb, err := embedder.Open(cfg.EmbedderOptions())
	if err != nil {
		return nil, nil, err
	}
	return engine.New(emb, cfg.EngineOptions()), emb, nil
}

// openOutput assembles the artifact sinks: a file or stdout, plus the
// webhook when one is configured.
func openOutput(w io.Writer, cfg config.Config) output.Output {
	var primary output.Output
	if cfg.StdoutArtifact() {
		primary = stdout.NewWriter(w, cfg.Output.Pretty)
	} else {
		primary = file.New(cfg.Output.Path, file.WithPretty(cfg.Output.Pretty))
	}
	if cfg.Output.WebhookURL == "" {
		return primary
	}
	return multi.New(primary, webhook.New(cfg.Output.WebhookURL))
}

func newChat(cfg config.Config) (*llm.Chat, error) {
	return llm.NewChat(cfg.LLMOptions(), analystPersona)
}

// writeJSON saves v indented, or prints it when path is "-".
func writeJSON(w io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return writeBytes(w, path, data)
}

func writeBytes(w io.Writer, path string, data []byte) error {
	if path == "-" || path == "stdout" {
		_, err := w.Write(data)
		return err
	}
	if err := file.WriteAtomic(path, data, 0o644); err != nil {
		return err
	}
	slog.Info("saved", "path", path)
	return nil
}

// readDescription returns the system description from args, piped stdin, or
// an interactive prompt, in that order.
func readDescription(ctx context.Context, args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	if !isTerminal(in) {
		data, err := io.ReadAll(bufio.NewReader(in))
		if err != nil {
			return "", fmt.Errorf("read description: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	var desc string
	form := huh.NewForm(huh.NewGroup(
		huh.NewText().
			Title("Describe the software system").
			Placeholder("An online store where customers browse products, pay and track orders...").
			Value(&desc),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("read description: %w", err)
	}
	return strings.TrimSpace(desc), nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
