// Package requirements turns a free-text system description into a target
// case by prompting a chat model and validating its JSON reply.
package requirements

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/crimson-sun/archlens/internal/corpus"
	"github.com/crimson-sun/archlens/internal/model"
)

// DefaultMaxTokens bounds the length of the generated reply.
const DefaultMaxTokens = 600

// ErrNoJSON is returned when a reply contains no complete JSON object.
var ErrNoJSON = errors.New("requirements: no complete JSON object in model output")

const promptTemplate = `
You are a software analyst. Based on the following system description, generate well-structured functional and non-functional requirements in JSON format.

System Description:
%s

Output JSON format:
{
  "system_description": "...",
  "functional_requirements": [
    { "title": "...", "description": "..." },
    ...
  ],
  "non_functional_requirements": [
    { "title": "...", "description": "..." },
    ...
  ]
}

Make sure both functional and non-functional requirements are included.

Answer:
`

// BuildPrompt returns the generation prompt for a description.
func BuildPrompt(description string) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(description))
}

// Completer is the chat model the generator talks to. *llm.Chat satisfies
// it.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Generator produces target cases from system descriptions.
type Generator struct {
	llm       Completer
	maxTokens int
}

// New creates a Generator. maxTokens <= 0 means DefaultMaxTokens.
func New(c Completer, maxTokens int) *Generator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Generator{llm: c, maxTokens: maxTokens}
}

// Result is a validated generation.
type Result struct {
	Case model.Case
	// JSON is the cleaned object, indented, as it should be saved.
	JSON []byte
}

// Generate prompts the model and validates the reply exactly like a target
// file. A reply with missing fields fails with MissingFieldError.
func (g *Generator) Generate(ctx context.Context, description string) (*Result, error) {
	if strings.TrimSpace(description) == "" {
		return nil, errors.New("requirements: system description is empty")
	}
	reply, err := g.llm.Complete(ctx, BuildPrompt(description), g.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("requirements: %w", err)
	}

	raw, err := ExtractJSON(reply)
	if err != nil {
		slog.Debug("unusable model output", "output", truncate(reply, 500))
		return nil, err
	}
	c, err := corpus.ParseTarget("generated requirements", raw)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("requirements: %w", err)
	}
	buf.WriteByte('\n')
	slog.Info("requirements generated",
		"functional", len(c.FunctionalRequirements), "non_functional", len(c.NonFunctionalRequirements))
	return &Result{Case: c, JSON: buf.Bytes()}, nil
}

var trailingComma = regexp.MustCompile(`,\s*([\]}])`)

// ExtractJSON returns the first balanced top-level object in text, after
// the first "Answer:" marker if there is one, with trailing commas before
// ] and } removed. Braces inside string literals are not counted.
func ExtractJSON(text string) ([]byte, error) {
	if _, after, ok := strings.Cut(text, "Answer:"); ok {
		text, _, _ = strings.Cut(after, "Answer:")
	}

	depth, start := 0, -1
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				obj := trailingComma.ReplaceAll([]byte(text[start:i+1]), []byte("$1"))
				if !json.Valid(obj) {
					return nil, fmt.Errorf("requirements: extracted block is not valid JSON: %s", truncate(string(obj), 200))
				}
				return obj, nil
			}
		}
	}
	return nil, ErrNoJSON
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
