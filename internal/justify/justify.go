// Package justify renders a natural-language justification from an
// explanation artifact, either from a fixed template or by asking a chat
// model.
package justify

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/crimson-sun/archlens/internal/model"
)

// DefaultK is how many leading features a justification cites.
const DefaultK = 5

var paragraph = template.Must(template.New("justification").Parse(`**Solution:**

The predicted architecture for the described system is **{{.Label}}**.

This is supported by the contribution of key semantic dimensions from the requirement embeddings, such as {{.Dimensions}}, which reflect patterns in the system’s need for user interaction, data processing, and flexibility.

The system must handle frequent user input, real-time financial updates, and modular insights — making {{.Label}} a suitable choice due to its ability to support responsive interfaces and maintainable component boundaries.

This architecture aligns with the system’s functional and non-functional goals.`))

var prompt = template.Must(template.New("prompt").Parse(`
You are a software architecture expert.

System Description:
{{.Description}}

Based on this system, the predicted architectural style is: {{.Label}}.

The top contributing sentence embedding dimensions were: {{.Dimensions}}.

Now, provide a justification in natural language for why the predicted architecture is suitable for this system. Explain it in simple but technical terms.
`))

type view struct {
	Label       string
	Dimensions  string
	Description string
}

func newView(exp model.Explanation, k int, description string) view {
	if k <= 0 {
		k = DefaultK
	}
	label := exp.PredictedArchitecture
	if label == "" {
		label = "Unknown"
	}
	top := exp.Top(k).TopContributingFeatures
	dims := make([]string, len(top))
	for i, f := range top {
		dims[i] = fmt.Sprintf("dimension %d", f.Dimension)
	}
	return view{Label: label, Dimensions: strings.Join(dims, ", "), Description: description}
}

// Render fills the justification template with the label and the first k
// dimensions of exp, in artifact order.
func Render(exp model.Explanation, k int) (string, error) {
	var b strings.Builder
	if err := paragraph.Execute(&b, newView(exp, k, "")); err != nil {
		return "", fmt.Errorf("justify: %w", err)
	}
	return b.String(), nil
}

// Prompt builds the chat prompt asking a model for a justification.
func Prompt(exp model.Explanation, k int, description string) (string, error) {
	var b strings.Builder
	if err := prompt.Execute(&b, newView(exp, k, description)); err != nil {
		return "", fmt.Errorf("justify: %w", err)
	}
	return b.String(), nil
}

// Completer is the chat model used in LLM mode.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Assembler produces justifications. With a nil Completer it renders the
// template.
type Assembler struct {
	llm Completer
	k   int
}

// New creates an Assembler citing k dimensions (DefaultK if k <= 0).
func New(llm Completer, k int) *Assembler {
	if k <= 0 {
		k = DefaultK
	}
	return &Assembler{llm: llm, k: k}
}

// Justify returns the justification text for exp.
func (a *Assembler) Justify(ctx context.Context, exp model.Explanation, description string) (string, error) {
	if a.llm == nil {
		return Render(exp, a.k)
	}
	p, err := Prompt(exp, a.k, strings.TrimSpace(description))
	if err != nil {
		return "", err
	}
	text, err := a.llm.Complete(ctx, p, 0)
	if err != nil {
		return "", fmt.Errorf("justify: %w", err)
	}
	return strings.TrimSpace(text), nil
}
