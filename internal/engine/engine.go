// Package engine runs the explainable classification core: flatten every
// case, embed, fit a linear classifier on the corpus, predict the target
// and attribute the prediction to embedding dimensions.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crimson-sun/archlens/internal/engine/attribution"
	"github.com/crimson-sun/archlens/internal/engine/classifier"
	"github.com/crimson-sun/archlens/internal/engine/embedder"
	"github.com/crimson-sun/archlens/internal/engine/flatten"
	"github.com/crimson-sun/archlens/internal/engine/labels"
	"github.com/crimson-sun/archlens/internal/model"
)

// DefaultTopK is the number of features kept in the explanation artifact.
const DefaultTopK = 10

// Options tunes a run.
type Options struct {
	TopK       int
	Classifier classifier.Options
}

// DefaultOptions returns top-10 features and the classifier defaults.
func DefaultOptions() Options {
	return Options{TopK: DefaultTopK, Classifier: classifier.DefaultOptions()}
}

// Engine orchestrates flatten → embed → fit → predict → explain.
type Engine struct {
	embedder embedder.Embedder
	opts     Options
}

// New creates an Engine. Zero-valued options fall back to the defaults.
func New(emb embedder.Embedder, opts Options) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Classifier == (classifier.Options{}) {
		opts.Classifier = classifier.DefaultOptions()
	}
	return &Engine{embedder: emb, opts: opts}
}

// Result is everything a run produces. Explanation is the persisted
// artifact; the rest is for callers that want more detail.
type Result struct {
	Explanation model.Explanation
	// Attributions holds one value per embedding dimension for the
	// predicted class, unranked.
	Attributions  []float64
	Labels        []string
	Probabilities []float64
	Iterations    int
	Converged     bool
}

// Explain trains on cases and explains the prediction for target.
func (e *Engine) Explain(ctx context.Context, cases []model.Case, target model.Case) (*Result, error) {
	if len(cases) == 0 {
		return nil, &model.InsufficientDataError{}
	}
	observed := make([]string, len(cases))
	for i, c := range cases {
		observed[i] = c.ArchitectureLabel
	}
	space := labels.New(observed)
	if space.Len() < 2 {
		return nil, &model.InsufficientDataError{Cases: len(cases), Labels: space.Len()}
	}
	y, err := space.EncodeAll(observed)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	texts := append(flatten.All(cases), flatten.Text(target))
	vecs, err := e.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	train, x := vecs[:len(cases)], vecs[len(cases)]
	slog.Debug("embedded cases", "cases", len(cases), "dim", len(x))

	m, err := classifier.Fit(train, y, space.Len(), e.opts.Classifier)
	if err != nil {
		return nil, fmt.Errorf("engine: fit: %w", err)
	}
	if !m.Converged() {
		slog.Warn("classifier did not converge", "iterations", m.Iterations(), "max_iter", e.opts.Classifier.MaxIter)
	}

	pred, err := m.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("engine: predict: %w", err)
	}
	label, err := space.Decode(pred)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	probs, err := m.Probabilities(x)
	if err != nil {
		return nil, fmt.Errorf("engine: predict: %w", err)
	}

	explainer, err := attribution.NewLinear(m, train)
	if err != nil {
		return nil, fmt.Errorf("engine: explain: %w", err)
	}
	values, err := attribution.Explain(explainer, x, pred)
	if err != nil {
		return nil, fmt.Errorf("engine: explain: %w", err)
	}

	slog.Debug("prediction explained", "label", label, "classes", space.Len(), "iterations", m.Iterations())
	return &Result{
		Explanation: model.Explanation{
			PredictedArchitecture:   label,
			TopContributingFeatures: attribution.TopK(values, e.opts.TopK),
		},
		Attributions:  values,
		Labels:        space.Names(),
		Probabilities: probs,
		Iterations:    m.Iterations(),
		Converged:     m.Converged(),
	}, nil
}

// embed returns one vector per text, checked for alignment and a single
// shared dimension.
func (e *Engine) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("engine: embed: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("engine: embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}

	dim := e.embedder.Dim()
	if dim == 0 {
		dim = len(vecs[0])
	}
	if dim == 0 {
		return nil, fmt.Errorf("engine: embedder returned empty vectors")
	}
	for i, v := range vecs {
		if len(v) != dim {
			what := fmt.Sprintf("corpus embedding %d", i)
			if i == len(vecs)-1 {
				what = "target embedding"
			}
			return nil, &model.DimensionMismatchError{What: what, Want: dim, Got: len(v)}
		}
	}
	return vecs, nil
}
