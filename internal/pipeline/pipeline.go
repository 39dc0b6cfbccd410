// Package pipeline wires a case source, the engine and an output into one
// run: load → explain → persist. Any failing stage aborts the run before
// the artifact is written.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/archlens/internal/corpus"
	"github.com/crimson-sun/archlens/internal/engine"
	"github.com/crimson-sun/archlens/internal/model"
	"github.com/crimson-sun/archlens/internal/output"
	"github.com/google/uuid"
)

// Explainer is the engine's contract as seen by the pipeline.
type Explainer interface {
	Explain(ctx context.Context, cases []model.Case, target model.Case) (*engine.Result, error)
}

// Pipeline connects a source, an explainer and an output.
type Pipeline struct {
	source corpus.Source
	engine Explainer
	output output.Output
}

// New creates a Pipeline from the given components.
func New(src corpus.Source, eng Explainer, out output.Output) *Pipeline {
	return &Pipeline{source: src, engine: eng, output: out}
}

// Run executes one run and returns the engine result after the artifact
// has been written.
func (p *Pipeline) Run(ctx context.Context) (*engine.Result, error) {
	log := slog.With("run_id", uuid.NewString())
	start := time.Now()

	cases, err := p.source.Corpus(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline load corpus: %w", err)
	}
	target, err := p.source.Target(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline load target: %w", err)
	}
	log.Info("inputs loaded", "cases", len(cases),
		"target_fr", len(target.FunctionalRequirements), "target_nfr", len(target.NonFunctionalRequirements))

	res, err := p.engine.Explain(ctx, cases, target)
	if err != nil {
		log.Error("run failed", "error", err)
		return nil, fmt.Errorf("pipeline explain: %w", err)
	}

	if err := p.output.Write(ctx, res.Explanation); err != nil {
		return nil, fmt.Errorf("pipeline output: %w", err)
	}
	log.Info("run complete",
		"label", res.Explanation.PredictedArchitecture,
		"features", len(res.Explanation.TopContributingFeatures),
		"duration", time.Since(start))
	return res, nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}
