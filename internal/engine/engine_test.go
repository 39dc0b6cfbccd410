package engine

import (
	"context"
	"errors"
	"math"
	"os"
	"slices"
	"testing"

	"github.com/crimson-sun/archlens/internal/engine/embedder"
	"github.com/crimson-sun/archlens/internal/engine/testdata"
	"github.com/crimson-sun/archlens/internal/model"
)

const (
	modelPath = "../../models/model.onnx"
	vocabPath = "../../models/vocab.txt"
)

func skipWithoutModel(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		t.Skip("ONNX model not available, skipping integration test")
	}
}

func req(title, desc string) model.Requirement {
	return model.Requirement{Title: title, Description: desc}
}

// scenario is the two-label corpus and streaming target used across tests.
func scenario() ([]model.Case, model.Case) {
	cases := []model.Case{
		{
			FunctionalRequirements:    []model.Requirement{req("Sessions", "supports concurrent sessions")},
			NonFunctionalRequirements: []model.Requirement{req("Scale", "must scale horizontally")},
			ArchitectureLabel:         "Microservices",
		},
		{
			FunctionalRequirements:    []model.Requirement{req("Forms", "renders forms")},
			NonFunctionalRequirements: []model.Requirement{req("Navigation", "simple navigation")},
			ArchitectureLabel:         "MVC",
		},
	}
	target := model.Case{
		FunctionalRequirements:    []model.Requirement{req("Feed", "processes stock price events in real time")},
		NonFunctionalRequirements: []model.Requirement{req("Push", "must notify subscribers instantly")},
	}
	return cases, target
}

func checkExplanation(t *testing.T, res *Result, labels []string, wantFeatures int) {
	t.Helper()
	exp := res.Explanation
	if !slices.Contains(labels, exp.PredictedArchitecture) {
		t.Errorf("predicted %q, not a corpus label %v", exp.PredictedArchitecture, labels)
	}
	if len(exp.TopContributingFeatures) != wantFeatures {
		t.Fatalf("got %d features, want %d", len(exp.TopContributingFeatures), wantFeatures)
	}
	for i, f := range exp.TopContributingFeatures {
		if math.IsNaN(f.SHAPValue) || math.IsInf(f.SHAPValue, 0) {
			t.Errorf("feature %d has non-finite value %v", i, f.SHAPValue)
		}
		if i > 0 && math.Abs(f.SHAPValue) > math.Abs(exp.TopContributingFeatures[i-1].SHAPValue) {
			t.Errorf("features not sorted by |value| at %d", i)
		}
	}
}

func TestExplainTwoLabelScenario(t *testing.T) {
	cases, target := scenario()
	eng := New(embedder.NewHashing(0), DefaultOptions())

	res, err := eng.Explain(context.Background(), cases, target)
	if err != nil {
		t.Fatalf("Explain() error: %v", err)
	}
	checkExplanation(t, res, []string{"MVC", "Microservices"}, 10)
	if len(res.Attributions) != embedder.DefaultHashDim {
		t.Errorf("attributions has %d values, want %d", len(res.Attributions), embedder.DefaultHashDim)
	}
	if len(res.Probabilities) != 2 {
		t.Errorf("got %d probabilities, want 2", len(res.Probabilities))
	}
}

func TestExplainSmallDimensionKeepsAllFeatures(t *testing.T) {
	cases, target := scenario()
	res, err := New(embedder.NewHashing(6), DefaultOptions()).Explain(context.Background(), cases, target)
	if err != nil {
		t.Fatalf("Explain() error: %v", err)
	}
	checkExplanation(t, res, []string{"MVC", "Microservices"}, 6)
}

func TestExplainMultiClassCorpus(t *testing.T) {
	cases, err := testdata.LoadCorpus()
	if err != nil {
		t.Fatalf("LoadCorpus() error: %v", err)
	}
	_, target := scenario()

	res, err := New(embedder.NewHashing(0), DefaultOptions()).Explain(context.Background(), cases, target)
	if err != nil {
		t.Fatalf("Explain() error: %v", err)
	}
	want := []string{"Event-Driven", "Layered", "MVC", "Microservices"}
	if !slices.Equal(res.Labels, want) {
		t.Errorf("labels = %v, want %v", res.Labels, want)
	}
	checkExplanation(t, res, want, 10)

	var sum float64
	for _, p := range res.Probabilities {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probabilities sum to %f", sum)
	}
}

func TestExplainIsDeterministic(t *testing.T) {
	cases, target := scenario()
	eng := New(embedder.NewHashing(0), DefaultOptions())

	a, err := eng.Explain(context.Background(), cases, target)
	if err != nil {
		t.Fatal(err)
	}
	b, err := eng.Explain(context.Background(), cases, target)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(a.Attributions, b.Attributions) || a.Explanation.PredictedArchitecture != b.Explanation.PredictedArchitecture {
		t.Error("two runs over the same input differ")
	}
}

func TestExplainInsufficientData(t *testing.T) {
	_, target := scenario()
	single := []model.Case{
		{ArchitectureLabel: "MVC", FunctionalRequirements: []model.Requirement{req("a", "b")}},
		{ArchitectureLabel: "MVC", FunctionalRequirements: []model.Requirement{req("c", "d")}},
	}

	tests := []struct {
		name   string
		cases  []model.Case
		labels int
	}{
		{"empty corpus", nil, 0},
		{"single label", single, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &countingEmbedder{Embedder: embedder.NewHashing(8)}
			_, err := New(rec, DefaultOptions()).Explain(context.Background(), tt.cases, target)
			var ide *model.InsufficientDataError
			if !errors.As(err, &ide) {
				t.Fatalf("expected InsufficientDataError, got %v", err)
			}
			if ide.Cases != len(tt.cases) || ide.Labels != tt.labels {
				t.Errorf("got %+v", ide)
			}
			if rec.calls != 0 {
				t.Error("embedder should not run for an untrainable corpus")
			}
		})
	}
}

func TestExplainRejectsMisalignedEmbeddings(t *testing.T) {
	cases, target := scenario()
	emb := &stubEmbedder{dim: 4, drop: true}
	if _, err := New(emb, DefaultOptions()).Explain(context.Background(), cases, target); err == nil {
		t.Fatal("expected error when the embedder drops a vector")
	}
}

func TestExplainRejectsRaggedEmbeddings(t *testing.T) {
	cases, target := scenario()
	emb := &stubEmbedder{dim: 4, shortTarget: true}
	_, err := New(emb, DefaultOptions()).Explain(context.Background(), cases, target)
	var dm *model.DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dm.What != "target embedding" || dm.Want != 4 || dm.Got != 3 {
		t.Errorf("got %+v", dm)
	}
}

func TestExplainWithONNX(t *testing.T) {
	skipWithoutModel(t)
	emb, err := embedder.NewONNX(embedder.ONNXConfig{ModelPath: modelPath, VocabPath: vocabPath, Normalize: true})
	if err != nil {
		t.Fatalf("NewONNX: %v", err)
	}
	defer emb.Close()

	cases, target := scenario()
	res, err := New(emb, DefaultOptions()).Explain(context.Background(), cases, target)
	if err != nil {
		t.Fatalf("Explain() error: %v", err)
	}
	checkExplanation(t, res, []string{"MVC", "Microservices"}, 10)
	t.Logf("predicted %s, top feature %+v", res.Explanation.PredictedArchitecture, res.Explanation.TopContributingFeatures[0])
}

type countingEmbedder struct {
	embedder.Embedder
	calls int
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	return c.Embedder.EmbedBatch(ctx, texts)
}

// stubEmbedder returns constant vectors with configurable faults.
type stubEmbedder struct {
	dim         int
	drop        bool
	shortTarget bool
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, s.dim), nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, s.dim)
		out[i][i%s.dim] = 1
	}
	if s.drop {
		out = out[:len(out)-1]
	}
	if s.shortTarget {
		out[len(out)-1] = out[len(out)-1][:s.dim-1]
	}
	return out, nil
}

func (s *stubEmbedder) Dim() int     { return s.dim }
func (s *stubEmbedder) Close() error { return nil }
