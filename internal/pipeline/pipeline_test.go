package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/crimson-sun/archlens/internal/corpus"
	"github.com/crimson-sun/archlens/internal/engine"
	"github.com/crimson-sun/archlens/internal/model"
)

type mockExplainer struct {
	res   *engine.Result
	err   error
	calls int
}

func (m *mockExplainer) Explain(_ context.Context, _ []model.Case, _ model.Case) (*engine.Result, error) {
	m.calls++
	return m.res, m.err
}

type mockOutput struct {
	written []model.Explanation
	closed  bool
}

func (m *mockOutput) Write(_ context.Context, exp model.Explanation) error {
	m.written = append(m.written, exp)
	return nil
}

func (m *mockOutput) Close() error {
	m.closed = true
	return nil
}

type failingSource struct{ err error }

func (f failingSource) Corpus(context.Context) ([]model.Case, error) { return nil, f.err }
func (f failingSource) Target(context.Context) (model.Case, error)   { return model.Case{}, f.err }

func TestRunWritesArtifact(t *testing.T) {
	exp := model.Explanation{PredictedArchitecture: "MVC", TopContributingFeatures: []model.Feature{{Dimension: 1, SHAPValue: 0.5}}}
	eng := &mockExplainer{res: &engine.Result{Explanation: exp}}
	out := &mockOutput{}

	p := New(corpus.Static{}, eng, out)
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Explanation.PredictedArchitecture != "MVC" {
		t.Errorf("label = %q", res.Explanation.PredictedArchitecture)
	}
	if len(out.written) != 1 {
		t.Fatalf("written = %d, want 1", len(out.written))
	}

	p.Close()
	if !out.closed {
		t.Error("Close should close the output")
	}
}

func TestRunAbortsWithoutArtifact(t *testing.T) {
	insufficient := &model.InsufficientDataError{}
	out := &mockOutput{}

	p := New(corpus.Static{}, &mockExplainer{err: insufficient}, out)
	_, err := p.Run(context.Background())

	var ide *model.InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("expected InsufficientDataError through the wrap, got %v", err)
	}
	if len(out.written) != 0 {
		t.Error("no artifact may be written after a failed stage")
	}
}

func TestRunStopsOnSourceError(t *testing.T) {
	boom := errors.New("no such file")
	eng := &mockExplainer{}
	out := &mockOutput{}

	_, err := New(failingSource{boom}, eng, out).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
	if eng.calls != 0 || len(out.written) != 0 {
		t.Error("later stages must not run after a source error")
	}
}
