package archlens

import (
	"context"
	"fmt"

	"github.com/crimson-sun/archlens/internal/corpus"
	"github.com/crimson-sun/archlens/internal/engine"
	"github.com/crimson-sun/archlens/internal/engine/embedder"
	"github.com/crimson-sun/archlens/internal/justify"
	"github.com/crimson-sun/archlens/internal/model"
)

// Archlens explains architecture predictions.
type Archlens struct {
	engine   *engine.Engine
	embedder embedder.Embedder
}

// New creates an Archlens instance. With the ONNX embedder this loads the
// model and tokenizer; create once and reuse.
func New(opts ...Option) (*Archlens, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	emb, err := embedder.Open(o.embedderConfig())
	if err != nil {
		return nil, fmt.Errorf("archlens: %w", err)
	}
	eng := engine.New(emb, engine.Options{TopK: o.topK, Classifier: o.classifier})
	return &Archlens{engine: eng, embedder: emb}, nil
}

// Explain trains on cases and explains the predicted architecture of target.
// Every case in cases must be labeled, and at least two labels must occur.
func (a *Archlens) Explain(ctx context.Context, cases []Case, target Case) (Explanation, error) {
	mc := make([]model.Case, len(cases))
	for i, c := range cases {
		mc[i] = c.toModel()
	}
	t := target.toModel()
	t.ArchitectureLabel = ""

	res, err := a.engine.Explain(ctx, mc, t)
	if err != nil {
		return Explanation{}, err
	}
	return explanationFromModel(res.Explanation), nil
}

// Justify renders a short justification citing the first k features of
// exp (5 if k <= 0).
func Justify(exp Explanation, k int) (string, error) {
	return justify.Render(exp.toModel(), k)
}

// Close releases embedder resources (ONNX session, cache).
func (a *Archlens) Close() error {
	return a.embedder.Close()
}

// LoadCorpus reads labeled case studies from a JSON array file.
func LoadCorpus(path string) ([]Case, error) {
	mc, err := corpus.LoadCorpus(path)
	if err != nil {
		return nil, err
	}
	cases := make([]Case, len(mc))
	for i, c := range mc {
		cases[i] = caseFromModel(c)
	}
	return cases, nil
}

// LoadTarget reads the target requirement set from a JSON object file.
func LoadTarget(path string) (Case, error) {
	c, err := corpus.LoadTarget(path)
	if err != nil {
		return Case{}, err
	}
	return caseFromModel(c), nil
}
